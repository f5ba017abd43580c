package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tordrt/schemagraph/internal/model"
)

func schemaOf(tables map[string][]string, order ...string) *model.Schema {
	s := &model.Schema{}
	for _, name := range order {
		t := model.Table{Name: name}
		for _, c := range tables[name] {
			t.Columns = append(t.Columns, model.Column{Name: c, Type: "TEXT"})
		}
		s.Tables = append(s.Tables, t)
	}
	return s
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name   string
		schema *model.Schema
		want   string
	}{
		{
			name:   "empty schema",
			schema: &model.Schema{},
			want:   General,
		},
		{
			name:   "nil schema",
			schema: nil,
			want:   General,
		},
		{
			name: "healthcare",
			schema: schemaOf(map[string][]string{
				"patient":     {"id", "dob", "first_name"},
				"appointment": {"id", "doctor", "diagnosis"},
			}, "patient", "appointment"),
			want: "Healthcare",
		},
		{
			name: "words must stand alone",
			schema: schemaOf(map[string][]string{
				"customers_archive": {"customer_id"},
			}, "customers_archive"),
			want: General,
		},
		{
			name: "tie goes to the earlier domain",
			schema: schemaOf(map[string][]string{
				"customer": {"id"},
			}, "customer"),
			want: "E-commerce",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.schema))
		})
	}
}

func TestScores(t *testing.T) {
	s := schemaOf(map[string][]string{"loan": {"balance", "currency"}}, "loan")
	scores := Scores(s)
	assert.Equal(t, 3.0, scores["Finance"])
	assert.Equal(t, 0.0, scores["Education"])
	assert.Len(t, scores, len(profiles))
}
