// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

const (
	IniName            = ".kagglehub.ini"
	CurrentEnvironment = "current_environment"
	UpdatedEnvKey      = "updated_environment"

	KaggleUsername    = "kaggle_username"
	KaggleKey         = "kaggle_key"
	KaggleApiEndpoint = "kaggle_api_endpoint"
	KagglehubCache    = "kagglehub_cache"

	KernelRunType   = "kaggle_kernel_run_type"
	KaggleInputRoot = "kaggle_input_root"
	ColabReleaseTag = "colab_release_tag"
	ColabInputRoot  = "colab_input_root"

	MirrorEndpoint  = "kagglehub_mirror_endpoint"
	MirrorBucket    = "kagglehub_mirror_bucket"
	MirrorRegion    = "kagglehub_mirror_region"
	MirrorAccessKey = "kagglehub_mirror_access_key"
	MirrorSecretKey = "kagglehub_mirror_secret_key"

	DefaultApiEndpoint = "https://www.kaggle.com/api/v1"

	// CompleteMarkerSuffix flags a cache entry as fully downloaded and
	// verified; an entry without its marker is never reused.
	CompleteMarkerSuffix = ".complete"
)
