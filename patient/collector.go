package patient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Collector turns raw prompt inputs into a Record. Numeric inputs are clamped
// to their range and missing inputs take the field default, the same way a
// bounded slider behaves.
type Collector struct {
	fields []Field
}

func NewCollector(opts Options) (*Collector, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Collector{fields: Fields(opts)}, nil
}

func (c *Collector) Fields() []Field {
	out := make([]Field, len(c.fields))
	copy(out, c.fields)
	return out
}

func (c *Collector) Defaults() Record {
	values := make([]float64, len(c.fields))
	for i, field := range c.fields {
		values[i] = field.Default
	}
	return recordFromVector(values)
}

// Collect builds a record from name→text inputs. Unknown names are ignored.
func (c *Collector) Collect(inputs map[string]string) (Record, error) {
	values := make([]float64, len(c.fields))
	for i, field := range c.fields {
		raw, ok := inputs[field.Name]
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			values[i] = field.Default
			continue
		}
		value, err := c.coerce(field, raw)
		if err != nil {
			return Record{}, err
		}
		values[i] = value
	}
	record := recordFromVector(values)
	if err := record.Validate(c.fields); err != nil {
		return Record{}, err
	}
	return record, nil
}

// CollectValues reads the first value of each field from form or query values.
func (c *Collector) CollectValues(values url.Values) (Record, error) {
	inputs := make(map[string]string, len(c.fields))
	for _, field := range c.fields {
		if values.Has(field.Name) {
			inputs[field.Name] = values.Get(field.Name)
		}
	}
	return c.Collect(inputs)
}

// CollectJSON reads a JSON object of field values. Values may be numbers or
// numeric strings.
func (c *Collector) CollectJSON(payload []byte) (Record, error) {
	var raw map[string]interface{}
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return c.CollectMap(raw)
}

// CollectMap accepts already-decoded JSON values.
func (c *Collector) CollectMap(raw map[string]interface{}) (Record, error) {
	inputs := make(map[string]string, len(raw))
	for name, value := range raw {
		switch v := value.(type) {
		case nil:
		case json.Number:
			inputs[name] = v.String()
		case float64:
			inputs[name] = strconv.FormatFloat(v, 'f', -1, 64)
		case string:
			inputs[name] = v
		case bool:
			if v {
				inputs[name] = "1"
			} else {
				inputs[name] = "0"
			}
		default:
			return Record{}, fmt.Errorf("%w: %s has unsupported type %T", ErrInvalidInput, name, value)
		}
	}
	return c.Collect(inputs)
}

func (c *Collector) coerce(field Field, raw string) (float64, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidInput, field.Name, raw)
	}
	switch field.Kind {
	case KindFlag:
		if !field.Contains(value) {
			return 0, fmt.Errorf("%w: %s must be one of %v, got %q", ErrInvalidInput, field.Name, field.Choices, raw)
		}
		return value, nil
	case KindInteger:
		value = math.Round(value)
	case KindReal:
		value = math.Round(value/field.Step) * field.Step
		value, _ = strconv.ParseFloat(strconv.FormatFloat(value, 'f', 2, 64), 64)
	}
	return clamp(value, field.Min, field.Max), nil
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
