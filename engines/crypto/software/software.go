package software

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/vpkilab/vpki/core/pkg/config"
	"github.com/vpkilab/vpki/core/pkg/errs"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "vpki-signing"

type vpkiEntropy struct {
	ctx context.Context
}

func NewEntropy(ctx context.Context) io.Reader {
	return &vpkiEntropy{ctx: ctx}
}

func (le *vpkiEntropy) Read(b []byte) (n int, err error) {
	_, span := otel.GetTracerProvider().Tracer(tracerName).Start(le.ctx, "entropy", trace.WithAttributes(semconv.ServiceName("vpki-testbed")))
	defer span.End()

	return rand.Read(b)
}

// SoftwareCryptoEngine keeps ed25519 keys in process memory.
type SoftwareCryptoEngine struct {
	logger *logrus.Entry
	mu     sync.RWMutex
	keys   map[string]ed25519.PrivateKey
}

func NewSoftwareCryptoEngine(logger *logrus.Entry) *SoftwareCryptoEngine {
	return &SoftwareCryptoEngine{
		logger: logger,
		keys:   map[string]ed25519.PrivateKey{},
	}
}

func (p *SoftwareCryptoEngine) GetProvider() config.CryptoEngineProvider {
	return config.SoftwareCryptoEngine
}

// CreateKey creates an ed25519 key. The key ID is the hex encoded sha256 of the public key.
func (p *SoftwareCryptoEngine) CreateKey(ctx context.Context) (string, []byte, error) {
	ctx, span := otel.GetTracerProvider().Tracer(tracerName).Start(ctx, "CreateKey", trace.WithAttributes(semconv.ServiceName("vpki-testbed")))
	defer span.End()

	lFunc := p.logger.WithField("func", "Ed25519")
	lFunc.Debugf("creating Ed25519 key")

	pub, priv, err := ed25519.GenerateKey(NewEntropy(ctx))
	if err != nil {
		lFunc.Errorf("could not create Ed25519 key: %s", err)
		return "", nil, err
	}

	keyID := EncodePublicKeyDigest(pub)

	p.mu.Lock()
	p.keys[keyID] = priv
	p.mu.Unlock()

	lFunc.Debugf("key %s created", keyID)
	return keyID, []byte(pub), nil
}

func (p *SoftwareCryptoEngine) GetPublicKey(ctx context.Context, keyID string) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	priv, ok := p.keys[keyID]
	if !ok {
		return nil, errs.ErrKeyNotFound
	}

	return []byte(priv.Public().(ed25519.PublicKey)), nil
}

func (p *SoftwareCryptoEngine) ListKeyIDs(ctx context.Context) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.keys))
	for id := range p.keys {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids, nil
}

// DeleteKey zeroes the private key material before forgetting it.
func (p *SoftwareCryptoEngine) DeleteKey(ctx context.Context, keyID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	priv, ok := p.keys[keyID]
	if !ok {
		return errs.ErrKeyNotFound
	}

	for i := range priv {
		priv[i] = 0
	}
	delete(p.keys, keyID)

	p.logger.Debugf("key %s deleted", keyID)
	return nil
}

func (p *SoftwareCryptoEngine) Sign(ctx context.Context, keyID string, message []byte) ([]byte, error) {
	_, span := otel.GetTracerProvider().Tracer(tracerName).Start(ctx, "Sign", trace.WithAttributes(semconv.ServiceName("vpki-testbed")))
	defer span.End()

	p.mu.RLock()
	priv, ok := p.keys[keyID]
	p.mu.RUnlock()

	if !ok {
		p.logger.Errorf("could not sign message: key %s not found", keyID)
		return nil, fmt.Errorf("%w: %w", errs.ErrSigningFailure, errs.ErrKeyNotFound)
	}

	return ed25519.Sign(priv, message), nil
}

func (p *SoftwareCryptoEngine) Verify(ctx context.Context, message []byte, signature []byte, publicKey []byte) (bool, error) {
	_, span := otel.GetTracerProvider().Tracer(tracerName).Start(ctx, "Verify", trace.WithAttributes(semconv.ServiceName("vpki-testbed")))
	defer span.End()

	if len(publicKey) != ed25519.PublicKeySize {
		return false, fmt.Errorf("%w: invalid public key size %d", errs.ErrVerificationFailure, len(publicKey))
	}

	if len(signature) != ed25519.SignatureSize {
		return false, fmt.Errorf("%w: invalid signature size %d", errs.ErrVerificationFailure, len(signature))
	}

	return ed25519.Verify(ed25519.PublicKey(publicKey), message, signature), nil
}

func EncodePublicKeyDigest(pub []byte) string {
	hash := sha256.Sum256(pub)
	return hex.EncodeToString(hash[:])
}
