package packs

import (
	"context"
	"regexp"

	"github.com/matzehuels/stackpack/pkg/fragment"
)

// WorkboxPlugin generates the service worker.
var WorkboxPlugin = Tool{"workbox-webpack-plugin", "4.2.0"}

// Precache exclusions: already-hashed images, source maps and manifests.
var PrecacheExclude = []string{
	`(?i)\.(png|jpe?g|gif|svg|webp)$`,
	`\.map$`,
	`^manifest.*\.js(?:on)?$`,
	`asset-manifest\.json$`,
}

// Image runtime caching.
const (
	ImageCachePattern    = `\.(?:png|jpg|jpeg|svg|webp)$`
	ImageCacheName       = "images"
	ImageCacheMaxEntries = 50
	ImageCacheMaxAge     = 86400 // one day, in seconds
)

var repeatedSlashes = regexp.MustCompile(`/{2,}`)

// Offline generates a precaching service worker for production builds.
type Offline struct{}

func (*Offline) Name() string { return "offline" }

// Check applies in production when a service worker was requested.
func (*Offline) Check(_ context.Context, env *Env) (bool, error) {
	return !env.Dev() && env.Options.ServiceWorker, nil
}

func (o *Offline) Build(ctx context.Context, env *Env) (fragment.Fragment, error) {
	workbox, err := env.Provider.Use(ctx, WorkboxPlugin.Name, WorkboxPlugin.Version)
	if err != nil {
		return fragment.Fragment{}, err
	}
	return fragment.Fragment{
		Name: o.Name(),
		Plugins: []fragment.Plugin{{
			Name:   "workbox-generate-sw",
			Module: workbox.Path,
			Options: map[string]any{
				"swDest":                    "service-worker.js",
				"importWorkboxFrom":         "local",
				"precacheManifestFilename":  "precache-manifest.[manifestHash].js",
				"clientsClaim":              true,
				"exclude":                   stringsToAny(PrecacheExclude),
				"navigateFallback":          NavigateFallback(env.Options.PublicPath),
				"navigateFallbackBlacklist": []any{`/[^/]+\.[^/]+$`},
				"runtimeCaching": []any{map[string]any{
					"urlPattern": ImageCachePattern,
					"handler":    "CacheFirst",
					"options": map[string]any{
						"cacheName": ImageCacheName,
						"expiration": map[string]any{
							"maxEntries":        ImageCacheMaxEntries,
							"maxAgeSeconds":     ImageCacheMaxAge,
							"purgeOnQuotaError": true,
						},
					},
				}},
			},
		}},
	}, nil
}

// NavigateFallback is the page served for unknown navigations.
func NavigateFallback(publicPath string) string {
	return repeatedSlashes.ReplaceAllString(publicPath+"/index.html", "/")
}

var _ Pack = (*Offline)(nil)
