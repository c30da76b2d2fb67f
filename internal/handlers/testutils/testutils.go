// Package testutils — вспомогательные функции для тестов HTTP-слоя.
package testutils

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// WithChiURLParams возвращает запрос с path-параметрами в роут-контексте
// chi. Хендлеры в тестах вызываются напрямую, минуя роутер, поэтому
// параметры приходится подкладывать вручную.
func WithChiURLParams(req *http.Request, params map[string]string) *http.Request {
	routeCtx := chi.NewRouteContext()
	for name, value := range params {
		routeCtx.URLParams.Add(name, value)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}
