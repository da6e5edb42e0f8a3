package geo

import (
	"context"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// MaxMindResolver reads a local GeoIP2/GeoLite2 city database.
type MaxMindResolver struct {
	reader *geoip2.Reader
}

// NewMaxMindResolver opens the database at path.
func NewMaxMindResolver(path string) (*MaxMindResolver, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &MaxMindResolver{reader: reader}, nil
}

// Resolve implements Resolver.
func (r *MaxMindResolver) Resolve(ctx context.Context, ip string) *Location {
	if isPrivateIP(ip) {
		return nil
	}

	record, err := r.reader.City(net.ParseIP(ip))
	if err != nil {
		return nil
	}

	loc := &Location{
		Country: record.Country.Names["en"],
		City:    record.City.Names["en"],
	}
	if loc.Country == "" && loc.City == "" {
		return nil
	}
	return loc
}

// Close releases the underlying database handle.
func (r *MaxMindResolver) Close() error {
	return r.reader.Close()
}

var _ Resolver = (*MaxMindResolver)(nil)
