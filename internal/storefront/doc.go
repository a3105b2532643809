// Package storefront is the base web application served by each worker.
//
// It exposes the GraphQL endpoint at /graphql/. The schema behind the
// endpoint is built on the first request that needs it, which is why the
// process bootstrap sends a warm-up request before a worker takes traffic.
// Requests are accepted only for hosts listed in the allowed hosts setting.
package storefront
