package main

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
)

func TestWriteErrorEmitsValidJSON(t *testing.T) {
	// error text with characters Go string quoting would escape as \x..,
	// which is not valid JSON
	cases := []error{
		errors.New("plain failure"),
		errors.New("control char \x01 in message"),
		errors.New("quote \" and backslash \\"),
		errors.New("invalid utf8 \xff byte"),
	}

	for _, err := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, 400, err)

		if rec.Code != 400 {
			t.Errorf("status = %d, want 400", rec.Code)
		}

		var body map[string]string
		if jerr := json.Unmarshal(rec.Body.Bytes(), &body); jerr != nil {
			t.Errorf("writeError(%q) produced invalid JSON %q: %v", err, rec.Body.String(), jerr)
			continue
		}
		if body["error"] == "" {
			t.Errorf("writeError(%q) produced empty error field", err)
		}
	}
}
