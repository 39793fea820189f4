package deploy

import (
	"context"
	"fmt"
)

// URLNormalizer turns a configured package location into something the
// runtime can fetch on a remote instance. Implementations fail with an
// I/O-kind error when the location cannot be resolved.
type URLNormalizer interface {
	Normalize(ctx context.Context, raw string) (string, error)
}

// NormalizerFunc adapts a function to URLNormalizer.
type NormalizerFunc func(ctx context.Context, raw string) (string, error)

// Normalize calls f(ctx, raw).
func (f NormalizerFunc) Normalize(ctx context.Context, raw string) (string, error) {
	return f(ctx, raw)
}

// identity leaves URLs untouched. Used when the handler has no normalizer.
var identity = NormalizerFunc(func(_ context.Context, raw string) (string, error) {
	return raw, nil
})

// PlanBootstrap returns the install statements for a fresh instance:
// runtime, tarball helper, service registration, a cleanup of any previous
// registration, then ElasticInbox itself. The package URL is passed to
// install_elasticinbox only when configured and non-empty after
// normalization; otherwise the installer falls back to its default package.
func (h *Handler) PlanBootstrap(ctx context.Context, props Properties) ([]Statement, error) {
	tarball, err := h.normalizer.Normalize(ctx, props.Get(KeyTarballURL))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", KeyTarballURL, err)
	}

	install := Call(FnInstallInbox)
	if tarball != "" {
		install = Call(FnInstallInbox, tarball)
	}

	return []Statement{
		Call(FnInstallJava),
		Call(FnInstallTarball),
		Call(FnInstallService),
		Call(FnRemoveService),
		install,
	}, nil
}
