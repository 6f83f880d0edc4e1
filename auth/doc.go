// Package auth holds the token contracts the HTTP surface depends on.
//
//   - auth/jwt      HMAC-signed bearer tokens for API clients
//   - auth/authctx  claims propagation through request contexts
//
// Middleware takes a TokenValidator, so the signing scheme can change
// without touching the server:
//
//	svc, _ := jwt.NewService(cfg.JWT)
//	validator := auth.NewValidator(svc.ValidatorFunc())
package auth
