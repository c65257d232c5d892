package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"smokectl/internal/kube"
)

func svc(name string, headless bool, ports ...int) kube.ServiceDescriptor {
	d := kube.ServiceDescriptor{Name: name, Headless: headless}
	for _, p := range ports {
		d.Ports = append(d.Ports, kube.ServicePort{Number: p})
	}
	return d
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name          string
		descriptors   []kube.ServiceDescriptor
		preferredPort int
		want          Target
		wantOK        bool
	}{
		{
			name:   "no services",
			wantOK: false,
		},
		{
			name: "non-headless wins over earlier headless",
			descriptors: []kube.ServiceDescriptor{
				svc("minio-hl", true, 9000),
				svc("minio", false, 443),
			},
			want:   Target{ServiceName: "minio", Port: 443},
			wantOK: true,
		},
		{
			name: "preferred port matches a later non-headless candidate",
			descriptors: []kube.ServiceDescriptor{
				svc("storagebox-cassandra-dc1-all-pods-service", false, 8080),
				svc("storagebox-cassandra-dc1-service", false, 8080, 9042),
			},
			preferredPort: 9042,
			want:          Target{ServiceName: "storagebox-cassandra-dc1-service", Port: 9042},
			wantOK:        true,
		},
		{
			name: "preferred port on a headless service is ignored when a cluster IP service exists",
			descriptors: []kube.ServiceDescriptor{
				svc("nfs-headless", true, 2049),
				svc("nfs", false, 111),
			},
			preferredPort: 2049,
			want:          Target{ServiceName: "nfs", Port: 111},
			wantOK:        true,
		},
		{
			name: "preferred port missing falls back to first candidate",
			descriptors: []kube.ServiceDescriptor{
				svc("a", false, 80, 81),
				svc("b", false, 82),
			},
			preferredPort: 9999,
			want:          Target{ServiceName: "a", Port: 80},
			wantOK:        true,
		},
		{
			name: "all headless prefers those with ports",
			descriptors: []kube.ServiceDescriptor{
				svc("seed-service", true),
				svc("dc1-service", true, 9042),
			},
			want:   Target{ServiceName: "dc1-service", Port: 9042},
			wantOK: true,
		},
		{
			name: "all headless without ports returns first with no port",
			descriptors: []kube.ServiceDescriptor{
				svc("seed-a", true),
				svc("seed-b", true),
			},
			want:   Target{ServiceName: "seed-a", Port: 0},
			wantOK: true,
		},
		{
			name: "first match in input order wins among several",
			descriptors: []kube.ServiceDescriptor{
				svc("one", false, 1, 2049),
				svc("two", false, 2049),
			},
			preferredPort: 2049,
			want:          Target{ServiceName: "one", Port: 2049},
			wantOK:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.descriptors, tt.preferredPort)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_NeverPicksHeadlessWhenClusterIPExists(t *testing.T) {
	sets := [][]kube.ServiceDescriptor{
		{svc("h1", true, 1), svc("c1", false)},
		{svc("h1", true, 5432), svc("h2", true, 5432), svc("c1", false, 1)},
		{svc("c1", false), svc("h1", true, 9042)},
	}
	for _, set := range sets {
		for _, prefer := range []int{0, 1, 5432, 9042} {
			got, ok := Resolve(set, prefer)
			if assert.True(t, ok) {
				assert.Equal(t, "c1", got.ServiceName, "set=%v prefer=%d", set, prefer)
			}
		}
	}
}

func TestResolveOrFallback(t *testing.T) {
	fallback := Fallback{ServiceName: "storagebox-nfs-server", Port: 2049}

	got, discovered := ResolveOrFallback(nil, 2049, fallback)
	assert.False(t, discovered)
	assert.Equal(t, Target{ServiceName: "storagebox-nfs-server", Port: 2049}, got)

	got, discovered = ResolveOrFallback([]kube.ServiceDescriptor{svc("nfs-generated", true)}, 2049, fallback)
	assert.True(t, discovered)
	assert.Equal(t, Target{ServiceName: "nfs-generated", Port: 2049}, got)

	got, discovered = ResolveOrFallback([]kube.ServiceDescriptor{svc("nfs-generated", false, 2049)}, 2049, fallback)
	assert.True(t, discovered)
	assert.Equal(t, Target{ServiceName: "nfs-generated", Port: 2049}, got)
}

func TestTargetString(t *testing.T) {
	assert.Equal(t, "minio:443", Target{ServiceName: "minio", Port: 443}.String())
}
