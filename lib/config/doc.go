// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the facegate daemon configuration.
//
// Configuration comes from exactly one YAML file, named by the
// FACEGATE_CONFIG environment variable or a --config flag. There is no
// discovery and no environment override of individual values, so the
// file on disk is the whole story when auditing a deployment.
//
// The file may carry development, staging, and production sections
// that override the base values for the matching environment. Paths
// may reference ${HOME}, ${FACEGATE_STATE}, and ${VAR:-default}.
//
// The match threshold and the attempt limit are not configurable. They
// are compiled into lib/descriptor and lib/session.
package config
