// Package patient collects the clinical inputs of one patient into a Record.
package patient

import (
	"fmt"
	"strings"
)

// Column names, in the order the model expects them.
const (
	Age                     = "age"
	Anaemia                 = "anaemia"
	CreatininePhosphokinase = "creatinine_phosphokinase"
	Diabetes                = "diabetes"
	EjectionFraction        = "ejection_fraction"
	HighBloodPressure       = "high_blood_pressure"
	Platelets               = "platelets"
	SerumCreatinine         = "serum_creatinine"
	SerumSodium             = "serum_sodium"
	Sex                     = "sex"
	Smoking                 = "smoking"
	Time                    = "time"
)

var columns = []string{
	Age,
	Anaemia,
	CreatininePhosphokinase,
	Diabetes,
	EjectionFraction,
	HighBloodPressure,
	Platelets,
	SerumCreatinine,
	SerumSodium,
	Sex,
	Smoking,
	Time,
}

// Columns returns the twelve record columns in model order.
func Columns() []string {
	return append([]string(nil), columns...)
}

// Kind is the semantic type of a field.
type Kind int

const (
	KindInteger Kind = iota
	KindReal
	KindFlag
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindFlag:
		return "flag"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "integer":
		*k = KindInteger
	case "real":
		*k = KindReal
	case "flag":
		*k = KindFlag
	default:
		return fmt.Errorf("unknown field kind %q", string(text))
	}
	return nil
}

// Field describes one bounded prompt.
type Field struct {
	Name    string  `json:"name"`
	Label   string  `json:"label"`
	Kind    Kind    `json:"kind"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Step    float64 `json:"step"`
	Default float64 `json:"default"`
	Choices []int   `json:"choices,omitempty"`
}

// Options holds the form settings that differ between deployments.
type Options struct {
	// CPKMin is the lower bound of the CPK slider, 0 or 20.
	CPKMin int
}

func DefaultOptions() Options {
	return Options{CPKMin: 0}
}

func (o Options) Validate() error {
	if o.CPKMin != 0 && o.CPKMin != 20 {
		return fmt.Errorf("cpk lower bound must be 0 or 20, got %d", o.CPKMin)
	}
	return nil
}

var binary = []int{0, 1}

// Fields returns the field descriptions in column order.
func Fields(opts Options) []Field {
	return []Field{
		integer(Age, "Age", 20, 100, 60),
		flag(Anaemia, "Anaemia", 0),
		integer(CreatininePhosphokinase, "CPK Level", float64(opts.CPKMin), 8000, 250),
		flag(Diabetes, "Diabetes", 0),
		integer(EjectionFraction, "Ejection Fraction (%)", 10, 80, 38),
		flag(HighBloodPressure, "High Blood Pressure", 0),
		integer(Platelets, "Platelets", 10000, 900000, 250000),
		{Name: SerumCreatinine, Label: "Serum Creatinine", Kind: KindReal, Min: 0.1, Max: 10.0, Step: 0.01, Default: 1.0},
		integer(SerumSodium, "Serum Sodium", 110, 150, 137),
		flag(Sex, "Sex (0 = Female, 1 = Male)", 1),
		flag(Smoking, "Smoking", 0),
		integer(Time, "Follow-up Time (days)", 1, 300, 100),
	}
}

func integer(name, label string, min, max, def float64) Field {
	return Field{Name: name, Label: label, Kind: KindInteger, Min: min, Max: max, Step: 1, Default: def}
}

func flag(name, label string, def float64) Field {
	return Field{Name: name, Label: label, Kind: KindFlag, Min: 0, Max: 1, Step: 1, Default: def, Choices: binary}
}

// Contains reports whether v is inside the field's domain.
func (f Field) Contains(v float64) bool {
	switch f.Kind {
	case KindFlag:
		for _, c := range f.Choices {
			if float64(c) == v {
				return true
			}
		}
		return false
	case KindInteger:
		if v != float64(int64(v)) {
			return false
		}
	}
	return v >= f.Min && v <= f.Max
}
