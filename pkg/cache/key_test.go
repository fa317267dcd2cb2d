package cache

import (
	"net/url"
	"testing"
)

func TestCacheKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  CacheKey
		want string
	}{
		{
			name: "prefix only",
			key:  CacheKey{},
			want: "champ",
		},
		{
			name: "namespace and id",
			key:  CacheKey{Namespace: "snapshot", ID: "latest"},
			want: "champ:snapshot:latest",
		},
		{
			name: "namespace is trimmed",
			key:  CacheKey{Namespace: ":search:", ID: "navi"},
			want: "champ:search:navi",
		},
		{
			name: "params sorted",
			key: CacheKey{
				Namespace: "snapshot",
				ID:        "latest",
				Params: url.Values{
					"version":    []string{"1"},
					"compressed": []string{"true"},
				},
			},
			want: "champ:snapshot:latest:compressed=true:version=1",
		},
		{
			name: "first param value wins",
			key: CacheKey{
				Namespace: "search",
				Params:    url.Values{"q": []string{"a", "b"}},
			},
			want: "champ:search:q=a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCacheKey_Deterministic(t *testing.T) {
	key := CacheKey{
		Namespace: "snapshot",
		ID:        "weekly",
		Params: url.Values{
			"z": []string{"1"},
			"a": []string{"2"},
			"m": []string{"3"},
		},
	}

	first := key.String()
	for i := 0; i < 100; i++ {
		if got := key.String(); got != first {
			t.Fatalf("Key not deterministic: %q != %q", got, first)
		}
	}
}
