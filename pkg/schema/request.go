package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrSchemaViolation is the sentinel behind every rejected prediction record.
var ErrSchemaViolation = errors.New("schema violation")

// ValidationError names the first offending field of a rejected record.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrSchemaViolation, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", ErrSchemaViolation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrSchemaViolation }

// PredictRequest is the UI-shaped prediction input. Numeric fields are decoded
// as floats so that 3 and 3.0 are treated alike; integer fields carry the
// "whole" constraint instead.
type PredictRequest struct {
	GrLivArea    *float64      `json:"GrLivArea"    validate:"required,gte=100"`
	TotalBsmtSF  *float64      `json:"TotalBsmtSF"  validate:"required,gte=0"`
	GarageCars   *float64      `json:"GarageCars"   validate:"required,whole,gte=0,lte=5"`
	FullBath     *float64      `json:"FullBath"     validate:"required,whole,gte=0,lte=5"`
	YearBuilt    *float64      `json:"YearBuilt"    validate:"required,whole,gte=1800,lte=2025"`
	Neighborhood *Neighborhood `json:"Neighborhood" validate:"required,neighborhood"`
	HouseStyle   *HouseStyle   `json:"HouseStyle"   validate:"required,housestyle"`
	OverallQual  *float64      `json:"OverallQual"  validate:"required,whole,gte=1,lte=10"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "whole", func(fl validator.FieldLevel) bool {
		f := reflect.Indirect(fl.Field())
		if f.Kind() != reflect.Float64 {
			return false
		}
		x := f.Float()
		return !math.IsInf(x, 0) && x == math.Trunc(x)
	})
	mustRegister(v, "neighborhood", func(fl validator.FieldLevel) bool {
		f := reflect.Indirect(fl.Field())
		return f.Kind() == reflect.String && Neighborhood(f.String()).Valid()
	})
	mustRegister(v, "housestyle", func(fl validator.FieldLevel) bool {
		f := reflect.Indirect(fl.Field())
		return f.Kind() == reflect.String && HouseStyle(f.String()).Valid()
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("schema: register %s validation: %v", tag, err))
	}
}

// ParseRequest decodes a JSON prediction request. Type mismatches are reported
// as schema violations naming the field; range checks happen in Validate.
func ParseRequest(r io.Reader) (*PredictRequest, error) {
	var req PredictRequest
	dec := json.NewDecoder(r)
	if err := dec.Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &ValidationError{Field: typeErr.Field, Reason: "must be a " + expectedKind(typeErr.Type)}
		}
		return nil, &ValidationError{Reason: "malformed JSON body: " + err.Error()}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, &ValidationError{Reason: "malformed JSON body: unexpected data after the object"}
	}
	return &req, nil
}

func expectedKind(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64:
		return "number"
	case reflect.String:
		return "string"
	}
	return t.String()
}

// Validate checks every field against its declared bound or enumeration and
// returns the normalized record. The whole record is rejected on the first
// violation.
func (r *PredictRequest) Validate() (Features, error) {
	if r == nil {
		return Features{}, &ValidationError{Reason: "empty request"}
	}
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return Features{}, &ValidationError{Field: verrs[0].Field(), Reason: describe(verrs[0])}
		}
		return Features{}, &ValidationError{Reason: err.Error()}
	}
	return Features{
		GrLivArea:    *r.GrLivArea,
		TotalBsmtSF:  *r.TotalBsmtSF,
		GarageCars:   int(*r.GarageCars),
		FullBath:     int(*r.FullBath),
		YearBuilt:    int(*r.YearBuilt),
		OverallQual:  int(*r.OverallQual),
		Neighborhood: string(*r.Neighborhood),
		HouseStyle:   string(*r.HouseStyle),
	}, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "whole":
		return "must be an integer"
	case "neighborhood":
		return "must be one of: " + joinValues(Neighborhoods)
	case "housestyle":
		return "must be one of: " + joinValues(HouseStyles)
	}
	return "failed " + fe.Tag() + " check"
}

func joinValues[T ~string](vals []T) string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return strings.Join(out, ", ")
}

// RequestFrom builds a fully populated request from a record, e.g. to replay a
// training row through the prediction path.
func RequestFrom(f Features) *PredictRequest {
	num := func(v float64) *float64 { return &v }
	n := Neighborhood(f.Neighborhood)
	s := HouseStyle(f.HouseStyle)
	return &PredictRequest{
		GrLivArea:    num(f.GrLivArea),
		TotalBsmtSF:  num(f.TotalBsmtSF),
		GarageCars:   num(float64(f.GarageCars)),
		FullBath:     num(float64(f.FullBath)),
		YearBuilt:    num(float64(f.YearBuilt)),
		Neighborhood: &n,
		HouseStyle:   &s,
		OverallQual:  num(float64(f.OverallQual)),
	}
}
