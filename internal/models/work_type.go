package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// WorkType enumerates the assessment instruments a work can be.
type WorkType string

const (
	WorkTypeProva        WorkType = "PROVA"
	WorkTypeTrabalho     WorkType = "TRABALHO"
	WorkTypeSeminario    WorkType = "SEMINARIO"
	WorkTypeAtividade    WorkType = "ATIVIDADE"
	WorkTypeParticipacao WorkType = "PARTICIPACAO"
)

var workTypeLabels = map[WorkType]string{
	WorkTypeProva:        "Prova",
	WorkTypeTrabalho:     "Trabalho",
	WorkTypeSeminario:    "Seminário",
	WorkTypeAtividade:    "Atividade",
	WorkTypeParticipacao: "Participação",
}

// WorkTypes lists every supported type in declaration order.
func WorkTypes() []WorkType {
	return []WorkType{WorkTypeProva, WorkTypeTrabalho, WorkTypeSeminario, WorkTypeAtividade, WorkTypeParticipacao}
}

// Valid returns true when the type is a supported value.
func (t WorkType) Valid() bool {
	_, ok := workTypeLabels[t]
	return ok
}

// Label is the human readable name used in sheet headers.
func (t WorkType) Label() string {
	if label, ok := workTypeLabels[t]; ok {
		return label
	}
	return string(t)
}

// ParseWorkType resolves a code (case-insensitive) or a label into a WorkType.
func ParseWorkType(raw string) (WorkType, error) {
	trimmed := strings.TrimSpace(raw)
	candidate := WorkType(strings.ToUpper(trimmed))
	if candidate.Valid() {
		return candidate, nil
	}
	for t, label := range workTypeLabels {
		if strings.EqualFold(label, trimmed) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown work type %q", raw)
}

// UnmarshalJSON accepts either the code or the label.
func (t *WorkType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseWorkType(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for preset files.
func (t *WorkType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := ParseWorkType(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
