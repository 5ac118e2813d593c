package validation

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Validation rule patterns
var (
	// Username: letters, digits and @/./+/-/_
	UsernamePattern = `^[A-Za-z0-9_.@+\-]+$`

	UsernameMinLength = 3
	UsernameMaxLength = 150

	// Password min length
	PasswordMinLength = 8
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	Username *regexp.Regexp
}{
	Username: regexp.MustCompile(UsernamePattern),
}

// Custom tags
const (
	TagCategory = "category"
	TagUsername = "username"
	TagRole     = "role"
	TagNotBlank = "notblank"
)

var registerOnce sync.Once

// Register adds the custom rules to v
func Register(v *validator.Validate) error {
	rules := map[string]validator.Func{
		TagCategory: func(fl validator.FieldLevel) bool {
			return models.Category(fl.Field().String()).Valid()
		},
		TagUsername: func(fl validator.FieldLevel) bool {
			return ValidUsername(fl.Field().String())
		},
		TagRole: func(fl validator.FieldLevel) bool {
			return models.RoleType(fl.Field().String()).Valid()
		},
		TagNotBlank: func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		},
	}
	// Field errors carry the JSON (or form) name the client sent
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, key := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// RegisterWithGin adds the custom rules to gin's binding validator once
func RegisterWithGin() error {
	var err error
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			err = Register(v)
		}
	})
	return err
}

// ValidUsername reports whether s is an acceptable username
func ValidUsername(s string) bool {
	if len(s) < UsernameMinLength || len(s) > UsernameMaxLength {
		return false
	}
	return CompiledPatterns.Username.MatchString(s)
}
