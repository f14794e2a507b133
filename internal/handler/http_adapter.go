package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
)

// InvokeRequest is the payload the Functions host posts for an HTTP trigger
// when request forwarding is off.
type InvokeRequest struct {
	Data struct {
		Req struct {
			URL     string              `json:"Url"`
			Method  string              `json:"Method"`
			Headers map[string][]string `json:"Headers"`
			Body    string              `json:"Body"`
		} `json:"req"`
	} `json:"Data"`
	Metadata map[string]any `json:"Metadata"`
}

// InvokeResponse carries the wrapped HTTP response back to the host.
type InvokeResponse struct {
	Outputs struct {
		Res struct {
			StatusCode int               `json:"statusCode"`
			Headers    map[string]string `json:"headers"`
			Body       string            `json:"body"`
		} `json:"res"`
	} `json:"Outputs"`
	Logs []string `json:"Logs,omitempty"`
}

// HandleHttpTrigger unwraps a host invocation, replays it against next and
// wraps the recorded response.
func HandleHttpTrigger(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var invoke InvokeRequest
		if err := json.NewDecoder(r.Body).Decode(&invoke); err != nil {
			slog.Error("failed to decode invocation", "error", err)
			WriteError(w, http.StatusBadRequest, "Failed to decode invocation")
			return
		}
		req := invoke.Data.Req

		body := []byte(req.Body)
		if isBinaryContent(req.Headers) {
			decoded, err := base64.StdEncoding.DecodeString(req.Body)
			if err != nil {
				slog.Error("failed to decode forwarded body", "url", req.URL, "error", err)
				WriteError(w, http.StatusBadRequest, "Invalid forwarded body")
				return
			}
			body = decoded
		}

		inner, err := http.NewRequestWithContext(r.Context(), req.Method, req.URL, bytes.NewReader(body))
		if err != nil {
			slog.Error("failed to build forwarded request", "method", req.Method, "url", req.URL, "error", err)
			WriteError(w, http.StatusBadRequest, "Invalid forwarded request")
			return
		}
		for k, vs := range req.Headers {
			for _, v := range vs {
				inner.Header.Add(k, v)
			}
		}

		rec := httptest.NewRecorder()
		next.ServeHTTP(rec, inner)
		result := rec.Result()
		defer result.Body.Close()
		respBody, _ := io.ReadAll(result.Body)

		var out InvokeResponse
		out.Outputs.Res.StatusCode = result.StatusCode
		out.Outputs.Res.Headers = map[string]string{}
		for k := range result.Header {
			out.Outputs.Res.Headers[k] = result.Header.Get(k)
		}
		out.Outputs.Res.Body = string(respBody)

		slog.Debug("forwarded invocation", "method", req.Method, "path", inner.URL.Path, "status", result.StatusCode)
		WriteJSON(w, http.StatusOK, out)
	}
}

// isBinaryContent reports whether the host base64 encoded the forwarded
// body. It does so for multipart and octet-stream payloads only.
func isBinaryContent(headers map[string][]string) bool {
	for k, vs := range headers {
		if !strings.EqualFold(k, "Content-Type") || len(vs) == 0 {
			continue
		}
		mediaType, _, err := mime.ParseMediaType(vs[0])
		if err != nil {
			return false
		}
		return strings.HasPrefix(mediaType, "multipart/") || mediaType == "application/octet-stream"
	}
	return false
}
