package readability

import (
	"bytes"
	"encoding/json"
)

const (
	FleschReadingEaseName       = "Flesch Reading Ease"
	FleschKincaidGradeName      = "Flesch-Kincaid Grade"
	SentenceCountName           = "Sentence Count"
	WordCountName               = "Word Count"
	SyllableCountName           = "Syllable Count"
	AverageSyllablesPerWordName = "Average Syllables per Word"
)

// MetricNames lists the MetricSet vocabulary in output order.
var MetricNames = []string{
	FleschReadingEaseName,
	FleschKincaidGradeName,
	SentenceCountName,
	WordCountName,
	SyllableCountName,
	AverageSyllablesPerWordName,
}

// MetricSet is the result of one scoring run. It is a value type; every call
// builds a new one.
type MetricSet struct {
	FleschReadingEase       float64
	FleschKincaidGrade      float64
	SentenceCount           int
	WordCount               int
	SyllableCount           int
	AverageSyllablesPerWord float64
}

func (m MetricSet) Get(name string) (float64, bool) {
	switch name {
	case FleschReadingEaseName:
		return m.FleschReadingEase, true
	case FleschKincaidGradeName:
		return m.FleschKincaidGrade, true
	case SentenceCountName:
		return float64(m.SentenceCount), true
	case WordCountName:
		return float64(m.WordCount), true
	case SyllableCountName:
		return float64(m.SyllableCount), true
	case AverageSyllablesPerWordName:
		return m.AverageSyllablesPerWord, true
	default:
		return 0, false
	}
}

func (m MetricSet) Map() map[string]float64 {
	out := make(map[string]float64, len(MetricNames))
	for _, name := range MetricNames {
		out[name], _ = m.Get(name)
	}
	return out
}

// MarshalJSON writes the six metrics as one object in MetricNames order.
// Counts are written as integers.
func (m MetricSet) MarshalJSON() ([]byte, error) {
	values := []any{
		m.FleschReadingEase,
		m.FleschKincaidGrade,
		m.SentenceCount,
		m.WordCount,
		m.SyllableCount,
		m.AverageSyllablesPerWord,
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range MetricNames {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
