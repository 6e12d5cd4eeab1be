package orchestrator

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/domain"
)

func TestResolveResource_KindFromTypeOrArn(t *testing.T) {
	tests := []struct {
		name     string
		res      domain.ScheduleResource
		wantKind domain.ResourceKind
		wantID   string
		wantErr  bool
	}{
		{"explicit type", domain.ScheduleResource{Type: "rds", Arn: "arn:aws:rds:ap-south-1:123456789012:db:main"}, domain.KindManagedDatabase, "main", false},
		{"canonical type", domain.ScheduleResource{Type: "container-service", Arn: "arn:aws:ecs:ap-south-1:123456789012:service/c/web"}, domain.KindContainerService, "web", false},
		{"type from arn", domain.ScheduleResource{Arn: "arn:aws:ec2:ap-south-1:123456789012:instance/i-abc"}, domain.KindComputeInstance, "i-abc", false},
		{"id kept", domain.ScheduleResource{ID: "custom", Arn: "arn:aws:ec2:ap-south-1:123456789012:instance/i-abc"}, domain.KindComputeInstance, "custom", false},
		{"unsupported service", domain.ScheduleResource{Arn: "arn:aws:s3:ap-south-1:123456789012:bucket"}, "", "", true},
		{"malformed", domain.ScheduleResource{Arn: "arn:aws:ec2:ap-south-1"}, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveResource(tt.res)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, got.kind)
			assert.Equal(t, tt.wantID, got.resource.ID)
		})
	}
}

func TestGroupResources(t *testing.T) {
	resources := []domain.ScheduleResource{
		{Arn: "arn:aws:ec2:us-east-1:222222222222:instance/i-4"},
		{Arn: "arn:aws:ec2:ap-south-1:111111111111:instance/i-1"},
		{Arn: "not-an-arn"},
		{Arn: "arn:aws:rds:ap-south-1:111111111111:db:main"},
		{Arn: "arn:aws:ec2:us-east-1:111111111111:instance/i-3"},
	}

	groups := groupResources(resources, zerolog.Nop())

	require.Len(t, groups, 2)
	assert.Equal(t, "111111111111", groups[0].accountID)
	require.Len(t, groups[0].regions, 2)
	assert.Equal(t, "ap-south-1", groups[0].regions[0].region)
	assert.Len(t, groups[0].regions[0].resources, 2)
	assert.Equal(t, "us-east-1", groups[0].regions[1].region)
	assert.Equal(t, "222222222222", groups[1].accountID)
	assert.Len(t, groupResourcesOf(groups[0]), 3)
}
