package clip

import "errors"

var ErrClipNotFound = errors.New("clip not found")
