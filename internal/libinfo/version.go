/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package libinfo reports the version of the docsubmit module for User-Agent headers and metric labels.
package libinfo

import (
	"debug/buildinfo"
	"regexp"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const ShortName = "docsubmit"

const moduleName = "github.com/crptkit/" + ShortName

// PrometheusVersionLabel is the const label attached to every collector of the module.
const PrometheusVersionLabel = "docsubmit_version"

const unknownVersion = "v0.0.0"

// Version may be set at link time (-ldflags "-X github.com/crptkit/docsubmit/internal/libinfo.Version=v1.2.3").
// When empty, the version is taken from the build info.
var Version string

// AddPrometheusVersionLabel returns a copy of labels extended with the module version.
func AddPrometheusVersionLabel(labels prometheus.Labels) prometheus.Labels {
	labelsCopy := make(prometheus.Labels, len(labels)+1)
	for k, v := range labels {
		labelsCopy[k] = v
	}
	labelsCopy[PrometheusVersionLabel] = GetVersion()
	return labelsCopy
}

var (
	version     string
	versionOnce sync.Once
)

// GetVersion returns the module version.
func GetVersion() string {
	versionOnce.Do(initVersion)
	return version
}

// UserAgent returns the default User-Agent of the module's HTTP clients.
func UserAgent() string {
	return ShortName + "/" + GetVersion()
}

func initVersion() {
	version = Version
	if version == "" {
		if buildInfo, ok := debug.ReadBuildInfo(); ok {
			version = extractVersion(buildInfo, moduleName)
		}
	}
	if version == "" {
		version = unknownVersion
	}
}

// extractVersion looks up the version of modName in the build info.
// The module may be either the main module (the docsubmit binary itself) or a dependency,
// optionally with a major version suffix ("/vX").
func extractVersion(buildInfo *buildinfo.BuildInfo, modName string) string {
	if buildInfo == nil {
		return ""
	}
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(modName) + `(/v[0-9]+)?$`)
	if re.MatchString(buildInfo.Main.Path) && buildInfo.Main.Version != "" && buildInfo.Main.Version != "(devel)" {
		return buildInfo.Main.Version
	}
	for _, dep := range buildInfo.Deps {
		if re.MatchString(dep.Path) {
			return dep.Version
		}
	}
	return ""
}
