package proxmox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetNodes(t *testing.T) {
	tests := []struct {
		name           string
		responseBody   string
		responseStatus int
		wantErr        bool
		expectedCount  int
	}{
		{
			name: "successful response",
			responseBody: `{
				"data": [
					{
						"id": "node/pve1",
						"node": "pve1",
						"type": "node",
						"status": "online",
						"cpu": 0.05,
						"maxcpu": 8,
						"mem": 2147483648,
						"maxmem": 8589934592,
						"uptime": 123456
					},
					{
						"id": "node/pve2",
						"node": "pve2",
						"type": "node",
						"status": "online",
						"cpu": 0.03,
						"maxcpu": 4,
						"mem": 1073741824,
						"maxmem": 4294967296,
						"uptime": 98765
					}
				]
			}`,
			responseStatus: http.StatusOK,
			wantErr:        false,
			expectedCount:  2,
		},
		{
			name:           "server error",
			responseBody:   `{"errors": {"status": 500, "error": "Internal server error"}}`,
			responseStatus: http.StatusInternalServerError,
			wantErr:        true,
			expectedCount:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assertHTTPRequest(t, r, "GET", "/api2/json/nodes")
				writeJSONResponse(w, tt.responseStatus, tt.responseBody)
			}))
			defer server.Close()

			client := createTestClient(server.URL)
			nodes, err := client.GetNodes(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, nodes)
				return
			}

			require.NoError(t, err)
			assert.Len(t, nodes, tt.expectedCount)
			assert.Equal(t, "pve1", nodes[0].Node)
			assert.Equal(t, "online", nodes[0].Status)
		})
	}
}

func TestGetNodeVMs(t *testing.T) {
	server, client := setupSimpleGETTest(t, "/api2/json/nodes/pve1/qemu", `{
		"data": [
			{
				"vmid": 100,
				"name": "100.example.com",
				"status": "running",
				"template": "",
				"cpus": 1,
				"maxmem": 1073741824,
				"tags": "unmonitored;excluded"
			},
			{
				"vmid": "101",
				"name": "101.example.com",
				"status": "stopped",
				"template": 1
			}
		]
	}`)
	defer server.Close()

	vms, err := client.GetNodeVMs(context.Background(), "pve1")
	require.NoError(t, err)
	require.Len(t, vms, 2)

	assert.Equal(t, Instance{
		VMID:   "100",
		Name:   "100.example.com",
		Type:   TypeQEMU,
		Status: "running",
		Tags:   "unmonitored;excluded",
	}, vms[0])

	assert.Equal(t, "101", vms[1].VMID)
	assert.True(t, vms[1].Template)
	assert.Equal(t, TypeQEMU, vms[1].Type)
}

func TestGetNodeContainers(t *testing.T) {
	server, client := setupSimpleGETTest(t, "/api2/json/nodes/pve1/lxc", `{
		"data": [
			{
				"vmid": "200",
				"name": "db.example.com",
				"status": "running",
				"type": "lxc",
				"tags": "postgres"
			},
			{
				"vmid": "201",
				"name": "cache.example.com",
				"status": "running"
			}
		]
	}`)
	defer server.Close()

	containers, err := client.GetNodeContainers(context.Background(), "pve1")
	require.NoError(t, err)
	require.Len(t, containers, 2)

	assert.Equal(t, TypeContainer, containers[0].Type)
	assert.Equal(t, "postgres", containers[0].Tags)
	assert.Equal(t, TypeContainer, containers[1].Type)
}

func TestGetNodeVMsError(t *testing.T) {
	server, client := setupStatusTest(http.StatusForbidden, `{"data": null}`)
	defer server.Close()

	vms, err := client.GetNodeVMs(context.Background(), "pve1")
	require.Error(t, err)
	assert.Nil(t, vms)
	assert.Contains(t, err.Error(), "failed to get VMs for node pve1")
}
