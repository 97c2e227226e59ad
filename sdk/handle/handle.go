// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package handle models the immutable identity of a requested resource:
// kind, owner, name, optional version and optional path inside the resource.
package handle

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/elpelech/kagglehub/sdk/kerrors"
	"github.com/elpelech/kagglehub/sdk/utils"
)

// ResourceKind selects the remote API endpoint family.
type ResourceKind string

const (
	DatasetKind     ResourceKind = "datasets"
	ModelKind       ResourceKind = "models"
	CompetitionKind ResourceKind = "competitions"
)

const siteBaseURL = "https://www.kaggle.com"

// latestSegment is the cache key segment used when no version is pinned. It
// is reserved so that an explicit version can never collide with it.
const latestSegment = "latest"

var segmentRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ResourceHandle identifies one resource. It is a value type and is never
// mutated after construction; compare handles with ==.
type ResourceHandle struct {
	Kind    ResourceKind
	Owner   string
	Name    string
	Version string // "" means latest; otherwise a positive integer or tag
	Subpath string // optional slash-separated path inside the resource
}

// New validates the identifiers and builds a handle.
func New(kind ResourceKind, owner, name, version, subpath string) (ResourceHandle, error) {
	if !validKind(kind) {
		return ResourceHandle{}, &kerrors.ValidationError{Message: fmt.Sprintf("unknown resource kind %q", kind)}
	}
	if !segmentRe.MatchString(owner) {
		return ResourceHandle{}, &kerrors.ValidationError{Message: fmt.Sprintf("invalid owner %q: must be a non-empty URL-safe segment", owner)}
	}
	if !segmentRe.MatchString(name) {
		return ResourceHandle{}, &kerrors.ValidationError{Message: fmt.Sprintf("invalid name %q: must be a non-empty URL-safe segment", name)}
	}
	if version != "" {
		if version == latestSegment {
			return ResourceHandle{}, &kerrors.ValidationError{Message: `version "latest" is reserved; omit the version instead`}
		}
		// completion markers live at <entry>.complete beside the version
		// directory; a version carrying the suffix would collide with the
		// marker of the version it strips to
		if strings.HasSuffix(version, utils.CompleteMarkerSuffix) {
			return ResourceHandle{}, &kerrors.ValidationError{Message: fmt.Sprintf("invalid version %q: the %q suffix is reserved", version, utils.CompleteMarkerSuffix)}
		}
		if !segmentRe.MatchString(version) || strings.HasPrefix(version, "0") {
			return ResourceHandle{}, &kerrors.ValidationError{Message: fmt.Sprintf("invalid version %q: must be a positive integer or tag", version)}
		}
	}
	if subpath != "" {
		for _, seg := range strings.Split(subpath, "/") {
			if !segmentRe.MatchString(seg) {
				return ResourceHandle{}, &kerrors.ValidationError{Message: fmt.Sprintf("invalid path %q inside resource", subpath)}
			}
		}
	}
	return ResourceHandle{Kind: kind, Owner: owner, Name: name, Version: version, Subpath: subpath}, nil
}

// Parse builds a handle from the "owner/name[/version[/sub/path...]]" string
// form accepted by the public download entry points.
func Parse(kind ResourceKind, ref string) (ResourceHandle, error) {
	parts := strings.Split(strings.Trim(ref, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return ResourceHandle{}, &kerrors.ValidationError{Message: fmt.Sprintf("invalid reference %q: expected owner/name[/version]", ref)}
	}
	version := ""
	subpath := ""
	if len(parts) >= 3 {
		version = parts[2]
	}
	if len(parts) >= 4 {
		subpath = strings.Join(parts[3:], "/")
	}
	return New(kind, parts[0], parts[1], version, subpath)
}

// URL renders the canonical site URL, used in user-facing messages.
func (h ResourceHandle) URL() string {
	u := fmt.Sprintf("%s/%s/%s/%s", siteBaseURL, h.Kind, h.Owner, h.Name)
	if h.Version != "" {
		u += "/versions/" + h.Version
	}
	return u
}

// CacheKey renders the filesystem-safe identity under the local cache root.
// A pinned version and "latest" never share a key.
func (h ResourceHandle) CacheKey() string {
	v := h.Version
	if v == "" {
		v = latestSegment
	}
	return path.Join(string(h.Kind), h.Owner, h.Name, v)
}

func (h ResourceHandle) String() string {
	ref := h.Owner + "/" + h.Name
	if h.Version != "" {
		ref += "/" + h.Version
	}
	return string(h.Kind) + ":" + ref
}

func validKind(kind ResourceKind) bool {
	switch kind {
	case DatasetKind, ModelKind, CompetitionKind:
		return true
	}
	return false
}
