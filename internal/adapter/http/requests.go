package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/storm-data-dashboard/internal/aggregate"
	"github.com/couchcryptid/storm-data-dashboard/internal/domain"
	"github.com/couchcryptid/storm-data-dashboard/internal/filter"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

// filterRequest is a partial filter update. An omitted field is left alone;
// an empty string resets it to "All".
type filterRequest struct {
	Type     *string `json:"type" validate:"omitnil,eventtype"`
	State    *string `json:"state" validate:"omitnil,statecode"`
	County   *string `json:"county" validate:"omitnil,max=64"`
	Severity *string `json:"severity" validate:"omitnil,severity"`
}

func (r filterRequest) update() filter.Update {
	var u filter.Update
	if r.Type != nil {
		t, _ := domain.ParseEventType(*r.Type)
		u.Type = &t
	}
	if r.State != nil {
		st := strings.ToUpper(*r.State)
		u.State = &st
	}
	if r.County != nil {
		c := strings.TrimSpace(*r.County)
		u.County = &c
	}
	if r.Severity != nil {
		sev, _ := domain.ParseSeverity(*r.Severity)
		u.Severity = &sev
	}
	return u
}

type dateRequest struct {
	From  string `json:"from" validate:"required,datetime=2006-01-02"`
	To    string `json:"to" validate:"omitempty,datetime=2006-01-02"`
	Range bool   `json:"range"`
}

// dates parses the validated request. A missing to is returned as zero.
func (r dateRequest) dates() (from, to time.Time, err error) {
	if from, err = domain.ParseDate(r.From); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if r.To != "" {
		if to, err = domain.ParseDate(r.To); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return from, to, nil
}

type colorModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=type severity"`
}

func (r colorModeRequest) colorMode() aggregate.ColorMode {
	m, _ := aggregate.ParseColorMode(r.Mode)
	return m
}

type queryRequest struct {
	Text     *string `json:"text" validate:"omitempty,max=65536"`
	Editable *bool   `json:"editable"`
}

// newValidator registers the filter vocabularies alongside the built-in
// tags. Each accepts "" so a present but empty field can mean "All".
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("eventtype", allowEmpty(func(s string) bool { //nolint:errcheck // static tag name
		_, ok := domain.ParseEventType(s)
		return ok
	}))
	v.RegisterValidation("severity", allowEmpty(func(s string) bool { //nolint:errcheck // static tag name
		_, ok := domain.ParseSeverity(s)
		return ok
	}))
	v.RegisterValidation("statecode", allowEmpty(isStateCode)) //nolint:errcheck // static tag name
	return v
}

func allowEmpty(ok func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || ok(s)
	}
}

func isStateCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, c := range s {
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}

// decode reads a JSON body into dst and validates it. Any failure is wrapped
// in errBadRequest.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	if err := s.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}
