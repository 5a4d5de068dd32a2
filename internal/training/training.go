package training

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Flynotfly/gymstat/internal/training/fields"
)

type ExerciseTemplate struct {
	ID          int           `json:"id,omitempty"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Fields      []fields.Name `json:"fields"`
	Tags        []string      `json:"tags"`
	IsAdmin     bool          `json:"is_admin,omitempty"`
}

// HasField reports whether the template declares the given field.
func (t *ExerciseTemplate) HasField(n fields.Name) bool {
	for _, f := range t.Fields {
		if f == n {
			return true
		}
	}
	return false
}

// BoolString is a bool the backend stores as "True"/"False" inside JSON blobs.
type BoolString bool

func (b BoolString) MarshalJSON() ([]byte, error) {
	if b {
		return []byte(`"True"`), nil
	}
	return []byte(`"False"`), nil
}

func (b *BoolString) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*b = false
	case bool:
		*b = BoolString(v)
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid bool string %q", v)
		}
		*b = BoolString(parsed)
	default:
		return fmt.Errorf("invalid bool value: %s", data)
	}
	return nil
}

type TrainingNote struct {
	Name     string      `json:"Name"`
	Field    fields.Kind `json:"Field"`
	Required BoolString  `json:"Required"`
	Value    string      `json:"Value"`
}

// SetData maps a field name to its value, either a JSON number or a string.
type SetData map[string]any

type Exercise struct {
	Template int               `json:"template"`
	Order    int               `json:"order"`
	Units    map[string]string `json:"units,omitempty"`
	Sets     []SetData         `json:"sets"`
}

// NewTraining is the payload for creating or updating a training.
type NewTraining struct {
	Conducted   time.Time      `json:"conducted"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Notes       []TrainingNote `json:"notes"`
	Exercises   []Exercise     `json:"exercises"`
}

type Training struct {
	NewTraining
	ID        int       `json:"id"`
	Owner     int       `json:"owner,omitempty"`
	Template  *int      `json:"template,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	EditedAt  time.Time `json:"edited_at"`
}

type TemplateNote struct {
	Name     string      `json:"Name"`
	Field    fields.Kind `json:"Field"`
	Required BoolString  `json:"Required"`
	Default  string      `json:"Default"`
}

type TemplateExercise struct {
	Template int               `json:"Template"`
	Unit     map[string]string `json:"Unit,omitempty"`
	Sets     []SetData         `json:"Sets,omitempty"`
}

type TemplateData struct {
	Notes     []TemplateNote     `json:"Notes"`
	Exercises []TemplateExercise `json:"Exercises"`
}

type TrainingTemplate struct {
	ID          int          `json:"id,omitempty"`
	Owner       int          `json:"owner,omitempty"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Data        TemplateData `json:"data"`
}

// SetValue renders a set value back into the string form the draft edits.
func SetValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case int:
		return strconv.Itoa(val)
	default:
		return fmt.Sprint(val)
	}
}
