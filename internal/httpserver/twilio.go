package httpserver

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
)

// validateTwilioSignature checks the X-Twilio-Signature HMAC over the request
// URL concatenated with the sorted form parameters.
func validateTwilioSignature(authToken, signature, url string, params map[string]string) bool {
	if authToken == "" || signature == "" {
		return false
	}

	data := url
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		data += k + params[k]
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(data))
	expectedSignature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expectedSignature))
}

// twilioAuthMiddleware parses the webhook form body on /twilio/ routes and,
// when an auth token is configured, rejects requests with a bad signature.
func (s *Server) twilioAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !strings.HasPrefix(c.Request().URL.Path, "/twilio/") {
				return next(c)
			}

			bodyBytes, err := io.ReadAll(c.Request().Body)
			if err != nil {
				return c.String(http.StatusBadRequest, "Failed to read request body")
			}
			formData, err := url.ParseQuery(string(bodyBytes))
			if err != nil {
				return c.String(http.StatusBadRequest, "Failed to parse form data")
			}
			params := make(map[string]string)
			for key, values := range formData {
				if len(values) > 0 {
					params[key] = values[0]
				}
			}

			if s.cfg.TwilioAuthToken != "" {
				signature := c.Request().Header.Get("X-Twilio-Signature")
				requestURL := fmt.Sprintf("https://%s%s", c.Request().Host, c.Request().URL.Path)
				if !validateTwilioSignature(s.cfg.TwilioAuthToken, signature, requestURL, params) {
					return c.String(http.StatusUnauthorized, "Invalid Twilio signature")
				}
			}

			c.Set("twilioParams", params)
			return next(c)
		}
	}
}
