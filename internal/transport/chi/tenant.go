package chi

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	domcol "github.com/kailas-cloud/docdex/internal/domain/collection"
	"github.com/kailas-cloud/docdex/internal/logger"
)

// TenantHeader carries the caller's pre-resolved tenant identity.
const TenantHeader = "X-Tenant-ID"

type tenantKey struct{}

// TenantMiddleware requires a valid tenant header on every non-exempt route
// and stores the tenant in the request context.
func TenantMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := exemptPaths[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		tenant := strings.TrimSpace(r.Header.Get(TenantHeader))
		if tenant == "" {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeInvalidTenant, "missing "+TenantHeader+" header")
			return
		}
		if err := domcol.ValidateTenant(tenant); err != nil {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeInvalidTenant, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), tenantKey{}, tenant)
		ctx = logger.ContextWithLogger(ctx, logger.FromContext(ctx).With(zap.String("tenant", tenant)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func tenantFromContext(ctx context.Context) string {
	t, _ := ctx.Value(tenantKey{}).(string)
	return t
}
