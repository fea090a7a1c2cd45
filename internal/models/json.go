package models

import "encoding/json"

// Older backend deployments serialized generated source under "generatedCode"
// rather than "code". Both are accepted on decode, preferring "code"; encode
// always uses the primary name.

func (j *Job) UnmarshalJSON(data []byte) error {
	type jobAlias Job
	aux := struct {
		*jobAlias
		GeneratedCode string `json:"generatedCode,omitempty"`
	}{jobAlias: (*jobAlias)(j)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if j.Code == "" && aux.GeneratedCode != "" {
		j.Code = aux.GeneratedCode
	}

	return nil
}
