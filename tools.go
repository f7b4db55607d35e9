// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

//go:build tools

// Package main pins test-only dependencies to go.mod.
package main

import (
	_ "github.com/onsi/ginkgo/v2/ginkgo"
	_ "github.com/onsi/gomega"
	_ "github.com/stretchr/testify/mock"
)
