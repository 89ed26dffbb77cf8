package patient

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCollector(t *testing.T, cpkMin int) *Collector {
	t.Helper()
	c, err := NewCollector(Options{CPKMin: cpkMin})
	require.NoError(t, err)
	return c
}

func TestCollectDefaults(t *testing.T) {
	c := newCollector(t, 0)

	record, err := c.Collect(nil)
	require.NoError(t, err)

	expected := Record{
		Age:                     60,
		Anaemia:                 0,
		CreatininePhosphokinase: 250,
		Diabetes:                0,
		EjectionFraction:        38,
		HighBloodPressure:       0,
		Platelets:               250000,
		SerumCreatinine:         1.0,
		SerumSodium:             137,
		Sex:                     1,
		Smoking:                 0,
		Time:                    100,
	}
	assert.Equal(t, expected, record)
	assert.Equal(t, expected, c.Defaults())
	assert.Equal(t, []float64{60, 0, 250, 0, 38, 0, 250000, 1.0, 137, 1, 0, 100}, record.Vector())
}

func TestCollectKeepsInputsVerbatim(t *testing.T) {
	c := newCollector(t, 0)

	record, err := c.Collect(map[string]string{
		Age:                     "75",
		Anaemia:                 "1",
		CreatininePhosphokinase: "582",
		Diabetes:                "1",
		EjectionFraction:        "20",
		HighBloodPressure:       "1",
		Platelets:               "265000",
		SerumCreatinine:         "1.9",
		SerumSodium:             "130",
		Sex:                     "0",
		Smoking:                 "1",
		Time:                    "4",
	})
	require.NoError(t, err)

	entries := record.Entries()
	require.Len(t, entries, 12)
	assert.Equal(t, Columns(), namesOf(entries))
	assert.Equal(t, []float64{75, 1, 582, 1, 20, 1, 265000, 1.9, 130, 0, 1, 4}, record.Vector())
}

func TestCollectClampsNumericInputs(t *testing.T) {
	c := newCollector(t, 0)

	record, err := c.Collect(map[string]string{
		Age:             "5",
		Platelets:       "9000000",
		SerumCreatinine: "0.01",
		Time:            "300.4",
	})
	require.NoError(t, err)
	assert.Equal(t, 20, record.Age)
	assert.Equal(t, 900000, record.Platelets)
	assert.Equal(t, 0.1, record.SerumCreatinine)
	assert.Equal(t, 300, record.Time)
}

func TestCollectCPKLowerBound(t *testing.T) {
	record, err := newCollector(t, 0).Collect(map[string]string{CreatininePhosphokinase: "0"})
	require.NoError(t, err)
	assert.Equal(t, 0, record.CreatininePhosphokinase)

	record, err = newCollector(t, 20).Collect(map[string]string{CreatininePhosphokinase: "0"})
	require.NoError(t, err)
	assert.Equal(t, 20, record.CreatininePhosphokinase)

	_, err = NewCollector(Options{CPKMin: 5})
	assert.Error(t, err)
}

func TestCollectRejectsBadInput(t *testing.T) {
	c := newCollector(t, 0)

	_, err := c.Collect(map[string]string{Anaemia: "2"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = c.Collect(map[string]string{Age: "old"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = c.Collect(map[string]string{Age: "NaN"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCollectValuesAndJSON(t *testing.T) {
	c := newCollector(t, 0)

	record, err := c.CollectValues(url.Values{Age: {"61"}, Smoking: {"1"}, "predict": {"1"}})
	require.NoError(t, err)
	assert.Equal(t, 61, record.Age)
	assert.Equal(t, 1, record.Smoking)

	record, err = c.CollectJSON([]byte(`{"age": 70, "serum_creatinine": "2.5", "diabetes": true}`))
	require.NoError(t, err)
	assert.Equal(t, 70, record.Age)
	assert.Equal(t, 2.5, record.SerumCreatinine)
	assert.Equal(t, 1, record.Diabetes)

	_, err = c.CollectJSON([]byte(`{"age": [1]}`))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = c.CollectJSON([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestValidate(t *testing.T) {
	fields := Fields(DefaultOptions())
	c := newCollector(t, 0)

	assert.NoError(t, c.Defaults().Validate(fields))

	bad := c.Defaults()
	bad.EjectionFraction = 90
	assert.ErrorIs(t, bad.Validate(fields), ErrInvalidInput)

	bad = c.Defaults()
	bad.Sex = 3
	assert.ErrorIs(t, bad.Validate(fields), ErrInvalidInput)

	assert.ErrorIs(t, c.Defaults().Validate(fields[:11]), ErrInvalidInput)
}

func namesOf(entries []Entry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}
