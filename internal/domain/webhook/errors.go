package webhook

import "errors"

var ErrSignatureInvalid = errors.New("webhook signature invalid")
