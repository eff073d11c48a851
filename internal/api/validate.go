package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

var validatorsOnce sync.Once

// registerValidators adds the isodate and plantstatus rules to gin's
// validator. A rule that fails to register is logged.
func registerValidators(logger *slog.Logger) {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			logger.Error("gin validator engine is not go-playground/validator")
			return
		}
		if err := v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			return types.ValidDate(fl.Field().String())
		}); err != nil {
			logger.Error("registering isodate rule", "error", err)
		}
		if err := v.RegisterValidation("plantstatus", func(fl validator.FieldLevel) bool {
			_, err := types.ParseStatus(fl.Field().String())
			return err == nil
		}); err != nil {
			logger.Error("registering plantstatus rule", "error", err)
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// bindJSON decodes the body into req and runs its validation rules.
// Failures come back as bad requests naming the offending field.
func bindJSON(c *gin.Context, req any) error {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return invalid(describe(verrs[0]))
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return err
	}
	return invalid("invalid request body: " + err.Error())
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "isodate":
		return field + ": " + types.ErrInvalidDate.Error()
	case "plantstatus":
		return field + ": " + types.ErrInvalidStatus.Error()
	case "gte":
		return field + " must be at least " + fe.Param()
	case "gt":
		return field + " must be greater than " + fe.Param()
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, types.ErrInvalidID
	}
	return id, nil
}
