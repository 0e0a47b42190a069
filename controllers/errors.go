package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"jansarthi-be/models"
	"jansarthi-be/utils"
)

// FieldIssue is one entry of a 422 response body.
type FieldIssue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func detail(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{"detail": msg})
}

func internalError(c *gin.Context, msg string, err error) {
	slog.Error(msg, "path", c.Request.URL.Path, "error", err)
	_ = c.Error(err)
	detail(c, http.StatusInternalServerError, msg)
}

func unprocessable(c *gin.Context, issues []FieldIssue) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": issues})
}

var registerOnce sync.Once

// RegisterValidators installs the custom binding tags and reports fields by
// their json or form name. It is safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			slog.Warn("Unexpected validator engine; custom tags not registered")
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
		if err := v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
			return utils.MobilePattern.MatchString(strings.ReplaceAll(fl.Field().String(), " ", ""))
		}); err != nil {
			slog.Error("Failed to register mobile validator", "error", err)
		}
	})
}

func fieldMessage(fe validator.FieldError) (string, string) {
	switch fe.Tag() {
	case "required":
		return "Field required", "missing"
	case "mobile":
		return "Invalid mobile number format", "value_error"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("String should have at least %s characters", fe.Param()), "string_too_short"
		}
		return "Input should be greater than or equal to " + fe.Param(), "greater_than_equal"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("String should have at most %s characters", fe.Param()), "string_too_long"
		}
		return "Input should be less than or equal to " + fe.Param(), "less_than_equal"
	case "len":
		return fmt.Sprintf("String should have exactly %s characters", fe.Param()), "string_length"
	case "gte":
		return "Input should be greater than or equal to " + fe.Param(), "greater_than_equal"
	case "lte":
		return "Input should be less than or equal to " + fe.Param(), "less_than_equal"
	case "gt":
		return "Input should be greater than " + fe.Param(), "greater_than"
	case "oneof":
		return enumMessage(strings.Fields(fe.Param())), "enum"
	}
	return "Invalid value", "value_error"
}

// bindError answers 422 for a failed ShouldBind call.
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		issues := make([]FieldIssue, 0, len(verrs))
		for _, fe := range verrs {
			msg, typ := fieldMessage(fe)
			issues = append(issues, FieldIssue{Loc: []string{"body", fe.Field()}, Msg: msg, Type: typ})
		}
		unprocessable(c, issues)
		return
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var numErr *strconv.NumError
	switch {
	case errors.As(err, &typeErr):
		unprocessable(c, []FieldIssue{{Loc: []string{"body", typeErr.Field}, Msg: "Input should be a valid " + typeErr.Type.String(), Type: "type_error"}})
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF):
		unprocessable(c, []FieldIssue{{Loc: []string{"body"}, Msg: "JSON decode error", Type: "json_invalid"}})
	case errors.As(err, &numErr):
		unprocessable(c, []FieldIssue{{Loc: []string{"body"}, Msg: "Input should be a valid number, unable to parse string as a number", Type: "number_parsing"}})
	default:
		unprocessable(c, []FieldIssue{{Loc: []string{"body"}, Msg: err.Error(), Type: "value_error"}})
	}
}

// query reads typed query parameters, collecting every problem so a single
// 422 lists them all.
type query struct {
	c      *gin.Context
	issues []FieldIssue
}

func newQuery(c *gin.Context) *query { return &query{c: c} }

func (q *query) fail(name, msg, typ string) {
	q.issues = append(q.issues, FieldIssue{Loc: []string{"query", name}, Msg: msg, Type: typ})
}

func (q *query) intRange(name string, def, min, max int) int {
	raw, ok := q.c.GetQuery(name)
	if !ok || raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(name, "Input should be a valid integer, unable to parse string as an integer", "int_parsing")
		return def
	}
	if v < min {
		q.fail(name, fmt.Sprintf("Input should be greater than or equal to %d", min), "greater_than_equal")
	} else if max > 0 && v > max {
		q.fail(name, fmt.Sprintf("Input should be less than or equal to %d", max), "less_than_equal")
	}
	return v
}

func (q *query) optionalInt64(name string) *int64 {
	raw, ok := q.c.GetQuery(name)
	if !ok || raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		q.fail(name, "Input should be a valid integer, unable to parse string as an integer", "int_parsing")
		return nil
	}
	return &v
}

// float reads a float in [min, max]. A missing parameter is an error when
// required is set, otherwise def is returned.
func (q *query) float(name string, def, min, max float64, required bool) float64 {
	raw, ok := q.c.GetQuery(name)
	if !ok || raw == "" {
		if required {
			q.fail(name, "Field required", "missing")
		}
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		q.fail(name, "Input should be a valid number, unable to parse string as a number", "float_parsing")
		return def
	}
	if v < min {
		q.fail(name, fmt.Sprintf("Input should be greater than or equal to %g", min), "greater_than_equal")
	} else if v > max {
		q.fail(name, fmt.Sprintf("Input should be less than or equal to %g", max), "less_than_equal")
	}
	return v
}

func (q *query) optionalBool(name string) *bool {
	raw, ok := q.c.GetQuery(name)
	if !ok || raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		q.fail(name, "Input should be a valid boolean, unable to interpret input", "bool_parsing")
		return nil
	}
	return &v
}

func (q *query) boolean(name string, def bool) bool {
	if v := q.optionalBool(name); v != nil {
		return *v
	}
	return def
}

func (q *query) issueType(name string) models.IssueType {
	raw := q.c.Query(name)
	if raw == "" {
		return ""
	}
	t := models.IssueType(raw)
	if !t.Valid() {
		opts := make([]string, len(models.IssueTypes))
		for i, v := range models.IssueTypes {
			opts[i] = string(v)
		}
		q.fail(name, enumMessage(opts), "enum")
		return ""
	}
	return t
}

func (q *query) status(name string) models.IssueStatus {
	raw := q.c.Query(name)
	if raw == "" {
		return ""
	}
	s := models.IssueStatus(raw)
	if !s.Valid() {
		opts := make([]string, len(models.IssueStatuses))
		for i, v := range models.IssueStatuses {
			opts[i] = string(v)
		}
		q.fail(name, enumMessage(opts), "enum")
		return ""
	}
	return s
}

func (q *query) role(name string) models.UserRole {
	raw := q.c.Query(name)
	if raw == "" {
		return ""
	}
	r := models.UserRole(raw)
	if !r.Valid() {
		q.fail(name, enumMessage([]string{string(models.RoleUser), string(models.RoleParshad), string(models.RolePWDWorker)}), "enum")
		return ""
	}
	return r
}

// maxPage keeps (page-1)*page_size far from overflowing int.
const maxPage = 1_000_000

// page reads page and page_size.
func (q *query) page(defaultSize int) (page, size int) {
	page = q.intRange("page", 1, 1, maxPage)
	size = q.intRange("page_size", defaultSize, 1, 100)
	return page, size
}

// failed writes the 422 response when any parameter was rejected.
func (q *query) failed() bool {
	if len(q.issues) == 0 {
		return false
	}
	unprocessable(q.c, q.issues)
	return true
}

func enumMessage(opts []string) string {
	quoted := make([]string, len(opts))
	for i, o := range opts {
		quoted[i] = "'" + o + "'"
	}
	if len(quoted) == 1 {
		return "Input should be " + quoted[0]
	}
	return "Input should be " + strings.Join(quoted[:len(quoted)-1], ", ") + " or " + quoted[len(quoted)-1]
}

// pathID parses an integer path parameter, answering 422 when it is not one.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		unprocessable(c, []FieldIssue{{Loc: []string{"path", name}, Msg: "Input should be a valid integer, unable to parse string as an integer", Type: "int_parsing"}})
		return 0, false
	}
	return id, true
}

func offset(page, size int) int { return (page - 1) * size }
