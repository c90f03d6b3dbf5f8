package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/grafops/grafana-console/pkg/access"
	"github.com/grafops/grafana-console/pkg/grafana"
	"github.com/grafops/grafana-console/pkg/httputil"
	"github.com/grafops/grafana-console/pkg/mapping"
	"github.com/grafops/grafana-console/pkg/observability"
)

// writeGrafanaError translates upstream failures into console responses.
// Upstream 404 passes through. Upstream 401/403 means the console's own
// credential is broken, which is an operator problem, so the client gets a
// 502 with the hint rather than being logged out.
func writeGrafanaError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := observability.FromContext(ctx)

	if apiErr, ok := grafana.AsAPIError(err); ok {
		switch {
		case apiErr.StatusCode == http.StatusNotFound:
			httputil.WriteNotFound(w, apiErr.Message)
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			logger.WithError(err).Error("grafana rejected the console credential")
			httputil.WriteErrorHint(w, http.StatusBadGateway, apiErr.Message, apiErr.Hint())
		case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
			httputil.WriteErrorMessage(w, apiErr.StatusCode, apiErr.Message)
		default:
			logger.WithError(err).Error("grafana upstream error")
			httputil.WriteBadGateway(w, apiErr.Message)
		}
		return
	}

	logger.WithError(err).Error("grafana unreachable")
	httputil.WriteBadGateway(w, "grafana is unreachable")
}

// writeResolveError handles access resolver failures
func writeResolveError(ctx context.Context, w http.ResponseWriter, err error) {
	observability.FromContext(ctx).WithError(err).Error("access resolution failed")
	if errors.Is(err, access.ErrCatalogUnavailable) {
		httputil.WriteBadGateway(w, "cannot determine access: catalog unavailable")
		return
	}
	httputil.WriteInternalError(w, err)
}

// writeMappingError handles mapping store failures
func writeMappingError(w http.ResponseWriter, err error) {
	if errors.Is(err, mapping.ErrNotFound) {
		httputil.WriteNotFound(w, err.Error())
		return
	}
	httputil.WriteBadRequest(w, err.Error())
}
