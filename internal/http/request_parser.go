package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"expensetracker/internal/core"
)

var errInvalidBody = errors.New("invalid request body")

// RequestBodyParser reads a JSON object or form-encoded body once and
// exposes its fields as strings.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most maxBodyBytes of r's body.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body. JSON is chosen by content type or by a leading
// brace; anything else is read as a form. A JSON body that is not an object
// is rejected.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.isJSONContent() || trimmed[0] == '{' || trimmed[0] == '[' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		var data map[string]any
		if err := dec.Decode(&data); err != nil || data == nil {
			p.err = errInvalidBody
			return p.err
		}
		p.jsonData = data
		return nil
	}

	form, err := url.ParseQuery(string(trimmed))
	if err != nil {
		p.err = errInvalidBody
		return p.err
	}
	p.formData = form
	return nil
}

func (p *RequestBodyParser) isJSONContent() bool {
	mt, _, err := mime.ParseMediaType(p.contentType)
	return err == nil && (mt == "application/json" || strings.HasSuffix(mt, "+json"))
}

// Lookup returns the sanitized value of key and whether it was supplied.
// A JSON null counts as not supplied.
func (p *RequestBodyParser) Lookup(key string) (string, bool) {
	if p.jsonData != nil {
		val, ok := p.jsonData[key]
		if !ok || val == nil {
			return "", false
		}
		return sanitizeInput(stringValue(val)), true
	}
	if p.formData != nil {
		if vals, ok := p.formData[key]; ok && len(vals) > 0 {
			return sanitizeInput(vals[0]), true
		}
	}
	return "", false
}

// Get returns the value of key, or "" when it is absent.
func (p *RequestBodyParser) Get(key string) string {
	v, _ := p.Lookup(key)
	return v
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// DraftFromRequest builds a new-expense draft. Missing or blank fields
// yield a ValidationError wrapping core.ErrMissingFields.
func DraftFromRequest(p *RequestBodyParser) (core.Draft, error) {
	desc := p.Get("description")
	amountStr := p.Get("amount")
	category := p.Get("category")
	if desc == "" || amountStr == "" || category == "" {
		return core.Draft{}, core.Invalid("", core.ErrMissingFields)
	}

	amount, err := core.ParseAmount(amountStr)
	if err != nil {
		return core.Draft{}, core.Invalid("amount", err)
	}
	d := core.Draft{Description: desc, Amount: amount, Category: category}
	return d, d.Validate()
}

// PatchFromRequest builds a partial update from the supplied fields only.
func PatchFromRequest(p *RequestBodyParser) (core.Patch, error) {
	var patch core.Patch
	if v, ok := p.Lookup("description"); ok {
		patch.Description = core.Some(v)
	}
	if v, ok := p.Lookup("amount"); ok {
		amount, err := core.ParseAmount(v)
		if err != nil {
			return core.Patch{}, core.Invalid("amount", err)
		}
		patch.Amount = core.Some(amount)
	}
	if v, ok := p.Lookup("category"); ok {
		patch.Category = core.Some(v)
	}
	return patch, patch.Validate()
}
