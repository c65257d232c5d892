// Package components is the fixed catalogue of storage components smokectl
// knows how to check.
package components

import (
	"errors"
	"fmt"
	"strings"

	"smokectl/internal/discovery"
	"smokectl/internal/probe"
)

// ErrUnknownKind is returned for component names outside the catalogue.
var ErrUnknownKind = errors.New("unknown component")

// Kind names a checkable component.
type Kind string

const (
	Postgres  Kind = "postgres"
	MinIO     Kind = "minio"
	NFS       Kind = "nfs"
	RQLite    Kind = "rqlite"
	Cassandra Kind = "cassandra"
)

// all is the catalogue in check order.
var all = []Kind{Postgres, MinIO, NFS, RQLite, Cassandra}

// CheckSpec is everything needed to locate and probe one component.
type CheckSpec struct {
	Name string
	// LabelSelector drives discovery. Empty means the fallback service is
	// used directly.
	LabelSelector string
	// PreferredPort picks a specific port among discovered services; zero
	// takes the first declared port.
	PreferredPort int
	Fallback      discovery.Fallback
	Probe         probe.Kind
	HealthPath    string
}

// Discovers reports whether the spec uses label discovery.
func (s CheckSpec) Discovers() bool {
	return s.LabelSelector != ""
}

func (s CheckSpec) String() string {
	return fmt.Sprintf("%s (%s via %s)", s.Name, s.Probe, s.Fallback.ServiceName)
}

// Spec returns the built-in check definition of k.
func (k Kind) Spec() CheckSpec {
	switch k {
	case Postgres:
		return CheckSpec{
			Name:     string(k),
			Fallback: discovery.Fallback{ServiceName: "postgres-nodeport", Port: 5432},
			Probe:    probe.KindTCP,
		}
	case MinIO:
		return CheckSpec{
			Name:          string(k),
			LabelSelector: "v1.min.io/tenant=minio",
			Fallback:      discovery.Fallback{ServiceName: "minio", Port: 443},
			Probe:         probe.KindHTTPS,
			HealthPath:    "/minio/health/live",
		}
	case NFS:
		return CheckSpec{
			Name:          string(k),
			LabelSelector: "app.kubernetes.io/name=nfs-server",
			PreferredPort: 2049,
			Fallback:      discovery.Fallback{ServiceName: "storagebox-nfs-server", Port: 2049},
			Probe:         probe.KindTCP,
		}
	case RQLite:
		return CheckSpec{
			Name:          string(k),
			LabelSelector: "helm.sh/chart=rqlite-2.0.0,app.kubernetes.io/component=voter",
			Fallback:      discovery.Fallback{ServiceName: "storagebox-rqlite", Port: 80},
			Probe:         probe.KindHTTP,
			HealthPath:    "/status",
		}
	case Cassandra:
		return CheckSpec{
			Name:          string(k),
			LabelSelector: "cassandra.datastax.com/cluster=storagebox-cassandra,cassandra.datastax.com/datacenter=dc1",
			PreferredPort: 9042,
			Fallback:      discovery.Fallback{ServiceName: "storagebox-cassandra-dc1-service", Port: 9042},
			Probe:         probe.KindTCP,
		}
	default:
		panic(fmt.Sprintf("components: no spec for kind %q", string(k)))
	}
}

// All returns every kind in check order.
func All() []Kind {
	out := make([]Kind, len(all))
	copy(out, all)
	return out
}

// Names returns the names of all kinds in check order.
func Names() []string {
	names := make([]string, len(all))
	for i, k := range all {
		names[i] = string(k)
	}
	return names
}

// ParseKind maps a name (case-insensitive) onto a Kind.
func ParseKind(name string) (Kind, error) {
	n := Kind(strings.ToLower(strings.TrimSpace(name)))
	for _, k := range all {
		if k == n {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w %q (known: %s)", ErrUnknownKind, name, strings.Join(Names(), ", "))
}

// Select turns user input into kinds. Each value may hold a comma
// separated list. Kinds keep the order they were first named in and
// duplicates are dropped. No input selects everything.
func Select(values []string) ([]Kind, error) {
	var out []Kind
	seen := map[Kind]bool{}
	for _, v := range values {
		for _, name := range strings.Split(v, ",") {
			if strings.TrimSpace(name) == "" {
				continue
			}
			k, err := ParseKind(name)
			if err != nil {
				return nil, err
			}
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	if len(out) == 0 {
		return All(), nil
	}
	return out, nil
}
