package asset

import (
	"fmt"
	"slices"
	"strings"

	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
	"github.com/laocai-wudi/chunmpre.cn/pkg/slug"
)

// Policy is the upload rule set applied before Store.
type Policy struct {
	MaxBytes          int64
	AllowedExtensions []string
}

// DefaultPolicy allows png, jpg, jpeg and gif files up to 5 MiB.
func DefaultPolicy() Policy {
	return Policy{
		MaxBytes:          5 << 20,
		AllowedExtensions: []string{"png", "jpg", "jpeg", "gif"},
	}
}

// Check validates one upload against the policy.
func (p Policy) Check(filename string, size int64) error {
	ext := slug.Extension(filename)
	if !slices.Contains(p.AllowedExtensions, ext) {
		return apperrors.InvalidInput(fmt.Sprintf("file type %q is not allowed, use one of: %s",
			ext, strings.Join(p.AllowedExtensions, ", ")))
	}
	if size <= 0 {
		return apperrors.InvalidInput("file is empty")
	}
	if p.MaxBytes > 0 && size > p.MaxBytes {
		return apperrors.InvalidInput(fmt.Sprintf("file exceeds the %d MiB limit", p.MaxBytes>>20))
	}
	return nil
}
