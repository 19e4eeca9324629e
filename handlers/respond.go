package handlers

import (
	"net/http"
	"regexp"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rentwise/rentwise/backend/go-services/internal/autherr"
	"github.com/rentwise/rentwise/backend/go-services/pkg/logger"
)

// mainland China mobile number, 11 digits
var phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

var registerOnce sync.Once

// RegisterValidators adds the custom binding tags used by request bodies.
// Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			logger.Warnf("binding validator is not go-playground; custom tags unavailable")
			return
		}
		if err := v.RegisterValidation("cnphone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		}); err != nil {
			logger.Errorf("register cnphone validator: %v", err)
		}
	})
}

// respondError writes the error kind and its fixed message. Unknown errors
// are logged and reported as a generic internal error.
func respondError(c *gin.Context, err error) {
	status := autherr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "internal", "message": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": autherr.Code(err), "message": autherr.Message(err)})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": err.Error()})
}
