package intake

import (
	"encoding/json"
	"strings"
)

// parseMedicalData decodes the extraction task's reply. The prompt demands
// bare JSON, but models occasionally wrap it in markdown fences or prose, so
// the parser takes the outermost brace-delimited block. The raw reply is
// always preserved verbatim; a reply with no decodable JSON yields an empty
// structured map rather than a failed turn.
func parseMedicalData(raw string) MedicalData {
	data := MedicalData{
		StructuredData: map[string]interface{}{},
		RawText:        strings.TrimSpace(raw),
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return data
	}

	var structured map[string]interface{}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &structured); err == nil {
		data.StructuredData = structured
	}
	return data
}
