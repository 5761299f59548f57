package packway_test

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/sagarc03/packway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBanner(t *testing.T) {
	assert.Equal(t, "001e# service=git-upload-pack\n0000", packway.Banner(packway.ServiceUploadPack))
	assert.Equal(t, "001f# service=git-receive-pack\n0000", packway.Banner(packway.ServiceReceivePack))
}

func TestBanner_LengthPrefixCoversLine(t *testing.T) {
	for _, svc := range []packway.Service{packway.ServiceUploadPack, packway.ServiceReceivePack} {
		banner := packway.Banner(svc)

		n, err := strconv.ParseUint(banner[:4], 16, 16)
		require.NoError(t, err)

		line := banner[:n]
		assert.Equal(t, "# service="+string(svc)+"\n", line[4:])
		assert.Equal(t, packway.FlushPkt, banner[n:])
	}
}

func TestWriteBanner(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, packway.WriteBanner(&buf, packway.ServiceUploadPack))
	assert.Equal(t, packway.Banner(packway.ServiceUploadPack), buf.String())
}
