// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package agenterr_test

import (
	"errors"
	"testing"

	"github.com/absmach/opcua-agent/internal/agenterr"
	"github.com/stretchr/testify/assert"
)

func TestErrorFormatsWithWrapped(t *testing.T) {
	inner := agenterr.New(agenterr.KindTransport, "dial failed")
	outer := agenterr.Wrap(agenterr.KindSession, "session start failed", inner)

	assert.Equal(t, "session start failed: dial failed", outer.Error())
	assert.Equal(t, agenterr.KindSession, outer.Kind())
}

func TestWrapNilIsNil(t *testing.T) {
	assert.Nil(t, agenterr.Wrap(agenterr.KindConfiguration, "x", nil))
}

func TestContainsFindsWrappedStdlibError(t *testing.T) {
	stdErr := errors.New("boom")
	wrapped := agenterr.Wrap(agenterr.KindProtocol, "write rejected", stdErr)

	assert.True(t, agenterr.Contains(wrapped, stdErr))
	assert.False(t, agenterr.Contains(wrapped, errors.New("other")))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "trust-store", agenterr.KindTrustStore.String())
	assert.Equal(t, "unknown", agenterr.Kind(99).String())
}
