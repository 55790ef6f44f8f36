package carbon

import "github.com/rs/zerolog"

var logger = zerolog.Nop()

// SetLogger sets the logger used for warnings raised while loading the
// embedded reference tables.
func SetLogger(l zerolog.Logger) {
	logger = l
}
