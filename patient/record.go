package patient

import (
	"errors"
	"fmt"
)

var ErrInvalidInput = errors.New("invalid input")

// Record is a single patient row. It is a comparable value type so it can be
// copied freely and used as a cache key.
type Record struct {
	Age                     int     `json:"age"`
	Anaemia                 int     `json:"anaemia"`
	CreatininePhosphokinase int     `json:"creatinine_phosphokinase"`
	Diabetes                int     `json:"diabetes"`
	EjectionFraction        int     `json:"ejection_fraction"`
	HighBloodPressure       int     `json:"high_blood_pressure"`
	Platelets               int     `json:"platelets"`
	SerumCreatinine         float64 `json:"serum_creatinine"`
	SerumSodium             int     `json:"serum_sodium"`
	Sex                     int     `json:"sex"`
	Smoking                 int     `json:"smoking"`
	Time                    int     `json:"time"`
}

// Entry is one column of a record preview.
type Entry struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Vector returns the record values in column order.
func (r Record) Vector() []float64 {
	return []float64{
		float64(r.Age),
		float64(r.Anaemia),
		float64(r.CreatininePhosphokinase),
		float64(r.Diabetes),
		float64(r.EjectionFraction),
		float64(r.HighBloodPressure),
		float64(r.Platelets),
		r.SerumCreatinine,
		float64(r.SerumSodium),
		float64(r.Sex),
		float64(r.Smoking),
		float64(r.Time),
	}
}

// Entries pairs each column name with its value, in column order.
func (r Record) Entries() []Entry {
	values := r.Vector()
	entries := make([]Entry, len(columns))
	for i, name := range columns {
		entries[i] = Entry{Name: name, Value: values[i]}
	}
	return entries
}

// Validate checks every value against its field domain.
func (r Record) Validate(fields []Field) error {
	if len(fields) != len(columns) {
		return fmt.Errorf("%w: expected %d fields, got %d", ErrInvalidInput, len(columns), len(fields))
	}
	for i, value := range r.Vector() {
		field := fields[i]
		if field.Name != columns[i] {
			return fmt.Errorf("%w: field %d is %q, expected %q", ErrInvalidInput, i, field.Name, columns[i])
		}
		if !field.Contains(value) {
			return fmt.Errorf("%w: %s=%v outside [%v, %v]", ErrInvalidInput, field.Name, value, field.Min, field.Max)
		}
	}
	return nil
}

func recordFromVector(v []float64) Record {
	return Record{
		Age:                     int(v[0]),
		Anaemia:                 int(v[1]),
		CreatininePhosphokinase: int(v[2]),
		Diabetes:                int(v[3]),
		EjectionFraction:        int(v[4]),
		HighBloodPressure:       int(v[5]),
		Platelets:               int(v[6]),
		SerumCreatinine:         v[7],
		SerumSodium:             int(v[8]),
		Sex:                     int(v[9]),
		Smoking:                 int(v[10]),
		Time:                    int(v[11]),
	}
}
