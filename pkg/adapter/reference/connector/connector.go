// Package connector is the reference adapter for the connector.* action
// kinds: a minimal OAuth-style token exchange and revocation store for
// third-party service connections. Real connectors (Gmail, CalDAV
// providers, ...) sit behind the same interface as external collaborators;
// this adapter only proves out the token lifecycle the pipeline expects.
package connector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quietcore/gateway/pkg/credentials"
	"github.com/quietcore/gateway/pkg/protocol"
)

// localOperator is the single-operator id this adapter persists
// credentials and rotation state under; there is exactly one human
// behind a gateway instance.
const localOperator = "local"

// connectionClaims extends the registered JWT claims with the connector
// identity a token was issued for.
type connectionClaims struct {
	jwt.RegisteredClaims
	ConnectorName string `json:"connectorName"`
}

type connection struct {
	ConnectorName string
	TokenID       string
	IssuedAt      time.Time
	ExpiresAt     time.Time
	Revoked       bool
}

// Adapter implements registry.Adapter for connector.authorize,
// connector.refresh_token, connector.revoke, and connector.list_connections.
type Adapter struct {
	signingKey []byte
	ttl        time.Duration
	creds      *credentials.Store
	rotation   *credentials.RotationManager

	mu          sync.RWMutex
	connections map[string]connection // tokenID -> connection
	leaseByName map[string]string     // connectorName -> rotation credentialID
}

// New builds a connector Adapter. signingKey signs and verifies the
// bearer tokens this adapter hands back; cmd/gateway passes the
// gateway's own request-signing key here. creds may be nil, in which case
// issued tokens live only in memory and do not survive a restart.
func New(signingKey []byte, ttl time.Duration, creds *credentials.Store) *Adapter {
	return &Adapter{
		signingKey:  signingKey,
		ttl:         ttl,
		creds:       creds,
		rotation:    credentials.NewRotationManager(credentials.RotationPolicy{MaxAge: ttl, AutoRotate: true}),
		connections: make(map[string]connection),
		leaseByName: make(map[string]string),
	}
}

func (a *Adapter) Execute(ctx context.Context, req protocol.ActionRequest) (interface{}, error) {
	switch req.Action {
	case "connector.authorize":
		return a.authorize(ctx, req)
	case "connector.refresh_token":
		return a.refresh(ctx, req)
	case "connector.revoke":
		return a.revoke(ctx, req)
	case "connector.list_connections":
		return a.listConnections()
	default:
		return nil, fmt.Errorf("connector: %s is not implemented by the reference adapter", req.Action)
	}
}

func (a *Adapter) authorize(ctx context.Context, req protocol.ActionRequest) (interface{}, error) {
	name, _ := req.Payload["connectorName"].(string)
	if name == "" {
		return nil, fmt.Errorf("connector: payload.connectorName is required")
	}
	return a.issue(ctx, name)
}

func (a *Adapter) refresh(ctx context.Context, req protocol.ActionRequest) (interface{}, error) {
	tokenStr, _ := req.Payload["token"].(string)
	claims, err := a.verify(tokenStr)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	delete(a.connections, claims.ID)
	leaseID, hadLease := a.leaseByName[claims.ConnectorName]
	a.mu.Unlock()
	if hadLease {
		if _, err := a.rotation.Rotate(leaseID); err != nil {
			return nil, fmt.Errorf("connector: rotate lease: %w", err)
		}
	}

	return a.issue(ctx, claims.ConnectorName)
}

func (a *Adapter) revoke(ctx context.Context, req protocol.ActionRequest) (interface{}, error) {
	tokenStr, _ := req.Payload["token"].(string)
	claims, err := a.verify(tokenStr)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	c, ok := a.connections[claims.ID]
	if !ok {
		a.mu.Unlock()
		return nil, fmt.Errorf("connector: unknown token")
	}
	c.Revoked = true
	a.connections[claims.ID] = c
	leaseID := a.leaseByName[claims.ConnectorName]
	delete(a.leaseByName, claims.ConnectorName)
	a.mu.Unlock()

	if leaseID != "" {
		_ = a.rotation.Revoke(leaseID)
	}
	if a.creds != nil {
		if err := a.creds.DeleteCredential(ctx, localOperator, c.ConnectorName); err != nil {
			return nil, fmt.Errorf("connector: delete stored credential: %w", err)
		}
	}

	return map[string]interface{}{"connectorName": c.ConnectorName, "revoked": true}, nil
}

func (a *Adapter) listConnections() (interface{}, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]connection, 0, len(a.connections))
	for _, c := range a.connections {
		out = append(out, c)
	}
	return out, nil
}

func (a *Adapter) issue(ctx context.Context, connectorName string) (interface{}, error) {
	now := time.Now().UTC()
	tokenID := fmt.Sprintf("%s-%d", connectorName, now.UnixNano())

	claims := connectionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			Issuer:    "gateway.local/connector",
		},
		ConnectorName: connectorName,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.signingKey)
	if err != nil {
		return nil, fmt.Errorf("connector: sign token: %w", err)
	}

	lease := a.rotation.Issue(localOperator, connectorName)

	a.mu.Lock()
	a.connections[tokenID] = connection{
		ConnectorName: connectorName, TokenID: tokenID, IssuedAt: now, ExpiresAt: claims.ExpiresAt.Time,
	}
	a.leaseByName[connectorName] = lease.CredentialID
	a.mu.Unlock()

	if a.creds != nil {
		expiresAt := claims.ExpiresAt.Time
		if err := a.creds.SaveCredential(ctx, &credentials.Credential{
			ID:          lease.CredentialID,
			OperatorID:  localOperator,
			Service:     connectorName,
			TokenType:   credentials.TokenTypeBearer,
			AccessToken: signed,
			ExpiresAt:   &expiresAt,
		}); err != nil {
			return nil, fmt.Errorf("connector: persist credential: %w", err)
		}
	}

	return map[string]interface{}{"connectorName": connectorName, "token": signed, "expiresAt": claims.ExpiresAt.Time}, nil
}

func (a *Adapter) verify(tokenStr string) (*connectionClaims, error) {
	if tokenStr == "" {
		return nil, fmt.Errorf("connector: payload.token is required")
	}
	token, err := jwt.ParseWithClaims(tokenStr, &connectionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("connector: unexpected signing method %v", t.Header["alg"])
		}
		return a.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("connector: invalid token: %w", err)
	}
	claims, ok := token.Claims.(*connectionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("connector: invalid token claims")
	}

	a.mu.RLock()
	c, known := a.connections[claims.ID]
	a.mu.RUnlock()
	if !known || c.Revoked {
		return nil, fmt.Errorf("connector: token revoked or unknown")
	}

	return claims, nil
}
