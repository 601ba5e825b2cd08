package storage

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aws/smithy-go"
	"github.com/semmidev/dbdrive/internal/domain"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

var s3AuthCodes = map[string]bool{
	"AccessDenied":          true,
	"InvalidAccessKeyId":    true,
	"SignatureDoesNotMatch": true,
	"ExpiredToken":          true,
	"InvalidToken":          true,
}

// remoteError tags err with op, or with RemoteAuth when the backend
// rejected the credentials.
func remoteError(op domain.RemoteOp, name string, err error) error {
	if isAuthFailure(err) {
		op = domain.RemoteAuth
	}
	return &domain.RemoteError{Op: op, Name: name, Err: err}
}

func isAuthFailure(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return true
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return true
		case http.StatusForbidden:
			for _, item := range gerr.Errors {
				if strings.HasSuffix(item.Reason, "Exceeded") || strings.HasPrefix(item.Reason, "rateLimit") {
					return false
				}
			}
			return true
		}
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return s3AuthCodes[apiErr.ErrorCode()]
	}

	return false
}
