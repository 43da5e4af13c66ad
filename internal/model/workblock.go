package model

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// DefaultWorkblockType is the classification used for effort already spent.
const DefaultWorkblockType = "EXPENDED"

// Workblock is a single-project effort record created on the API.
type Workblock struct {
	Project    int     `json:"project"`
	RSE        int     `json:"rse"`
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
	EffortRate float64 `json:"effort_rate"`
	Type       string  `json:"type"`
}

// Values form-encodes the workblock for POST /api/workblocks/.
func (w Workblock) Values() url.Values {
	typ := w.Type
	if typ == "" {
		typ = DefaultWorkblockType
	}
	return url.Values{
		"project":     {strconv.Itoa(w.Project)},
		"rse":         {strconv.Itoa(w.RSE)},
		"start_date":  {w.StartDate},
		"end_date":    {w.EndDate},
		"effort_rate": {strconv.FormatFloat(w.EffortRate, 'f', -1, 64)},
		"type":        {typ},
	}
}

// ProjectEffort is one project line of a note.
type ProjectEffort struct {
	Slug       string
	EffortRate float64
}

// Note is the parsed front matter of a daily note.
// Projects keeps the order in which they appear in the document.
type Note struct {
	Date     string
	Projects []ProjectEffort
}

// Record is a JSON object returned by the API.
type Record map[string]any

// PK returns the record's primary key.
func (r Record) PK() (int, error) {
	v, ok := r["pk"]
	if !ok {
		return 0, fmt.Errorf("record has no pk field")
	}
	switch pk := v.(type) {
	case json.Number:
		n, err := strconv.Atoi(pk.String())
		if err != nil {
			return 0, fmt.Errorf("record pk %q is not an integer", pk)
		}
		return n, nil
	case float64:
		if pk != float64(int(pk)) {
			return 0, fmt.Errorf("record pk %v is not an integer", pk)
		}
		return int(pk), nil
	case int:
		return pk, nil
	default:
		return 0, fmt.Errorf("record pk has unexpected type %T", v)
	}
}
