package provider

import (
	"context"

	"github.com/kursadbilgin/hme-generator/internal/domain"
)

// AddressService is the outbound port to the masked-address account service.
//
// A non-nil error means the service produced no usable response (transport,
// session or decoding failure). Otherwise the returned Result carries the
// service's own success flag and error detail.
type AddressService interface {
	Generate(ctx context.Context) (domain.Result[string], error)
	Reserve(ctx context.Context, hme string) (domain.Result[string], error)
	List(ctx context.Context) (domain.Result[[]domain.Address], error)
}
