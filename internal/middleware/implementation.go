package middleware

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"strings"

	"github.com/akolanti/DocAssist/internal/adapter/utils"
	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/internal/handlers"
)

// accessTokenParam carries the token for clients that cannot set headers,
// such as browser websockets.
const accessTokenParam = "access_token"

func injectTrace(re requestResponseStruct) requestResponseStruct {
	req := re.req
	if req == nil {
		//this is a bad request
		re.badRequest.httpCode = http.StatusBadRequest
		re.badRequest.errorMessage = "request is empty"
		re.badRequest.isBadRequest = true
		return re
	}
	trace := req.Header.Get("X-Trace-Id")
	if trace == "" {
		trace = utils.GetNewUUID()
	}
	re.logger = re.logger.With("traceId", trace)
	ctx := context.WithValue(req.Context(), config.TRACE_ID_KEY, trace)
	req.Header.Set("X-Trace-Id", trace)
	re.writer.Header().Set("X-Trace-Id", trace)
	re.req = req.WithContext(ctx)
	re.badRequest.id = trace
	return re
}

func (c *Chain) authenticate(re requestResponseStruct) requestResponseStruct {
	if c.opts.Token == "" && c.opts.JWTSecret == "" {
		return re
	}

	token := bearerToken(re.req)
	if token == "" || !c.validToken(token, re) {
		re.badRequest.isBadRequest = true
		re.badRequest.errorMessage = "unauthorized"
		re.badRequest.httpCode = http.StatusUnauthorized
		return re
	}
	re.logger.Debug("Authorized")
	return re
}

func (c *Chain) validToken(token string, re requestResponseStruct) bool {
	if c.opts.JWTSecret != "" {
		subject, err := ParseToken(token, []byte(c.opts.JWTSecret))
		if err == nil {
			re.logger.Debug("JWT accepted", "subject", subject)
			return true
		}
		re.logger.Debug("JWT rejected", "error", err)
	}
	if c.opts.Token != "" {
		return subtle.ConstantTimeCompare([]byte(token), []byte(c.opts.Token)) == 1
	}
	return false
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if header == "" {
		return r.URL.Query().Get(accessTokenParam)
	}
	return ""
}

func (c *Chain) rateLimiter(re requestResponseStruct) requestResponseStruct {
	ip, _, err := net.SplitHostPort(re.req.RemoteAddr)
	if err != nil {
		ip = re.req.RemoteAddr
	}

	if !c.limiter.GetLimiter(ip).Allow() {
		re.badRequest = failureStruct{
			isBadRequest: true,
			httpCode:     http.StatusTooManyRequests,
			errorMessage: "rate limit exceeded",
			id:           re.badRequest.id,
		}
		return re
	}
	return re
}

// handleBadRequest writes the failure once and reports whether the request
// may continue.
func handleBadRequest(re requestResponseStruct) bool {
	if re.badRequest.isBadRequest {
		remote := ""
		if re.req != nil {
			remote = re.req.RemoteAddr
		}
		re.logger.Warn("Bad request", "httpCode", re.badRequest.httpCode, "errorMessage", re.badRequest.errorMessage, "IP", remote)
		handlers.WriteErrorResponse(re.writer, re.badRequest.httpCode, re.badRequest.id, re.badRequest.errorMessage)
		return false
	}
	return true
}
