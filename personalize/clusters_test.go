package personalize

import "testing"

func TestUnknownViewerGetsDefault(t *testing.T) {
	svc, err := NewUserClusteringService(10)
	if err != nil {
		t.Fatalf("NewUserClusteringService() error = %v", err)
	}

	p := svc.Profile(99999)
	if p.ClusterID != 0 {
		t.Errorf("ClusterID = %d, want 0", p.ClusterID)
	}
	if p.EngagementMultiplier != 1.0 {
		t.Errorf("EngagementMultiplier = %v, want 1.0", p.EngagementMultiplier)
	}
	if p.VideoPreference != 0.5 || p.ImagePreference != 0.5 || p.TextPreference != 0.5 {
		t.Errorf("preferences = %v/%v/%v, want 0.5 each", p.VideoPreference, p.ImagePreference, p.TextPreference)
	}
}

func TestAssignAndProfile(t *testing.T) {
	svc, _ := NewUserClusteringService(10)

	profile := DefaultProfile()
	profile.ClusterID = 3
	profile.VideoPreference = 0.8

	if err := svc.Assign(12345, profile); err != nil {
		t.Fatalf("Assign() error = %v", err)
	}

	got := svc.Profile(12345)
	if got.ClusterID != 3 {
		t.Errorf("ClusterID = %d, want 3", got.ClusterID)
	}
	if got.VideoPreference != 0.8 {
		t.Errorf("VideoPreference = %v, want 0.8", got.VideoPreference)
	}
}

func TestAssignRejectsInvalidProfile(t *testing.T) {
	svc, _ := NewUserClusteringService(10)

	bad := DefaultProfile()
	bad.EngagementMultiplier = 0
	if err := svc.Assign(1, bad); err == nil {
		t.Error("Assign() accepted zero engagement multiplier")
	}

	bad = DefaultProfile()
	bad.VideoPreference = 1.5
	if err := svc.Assign(1, bad); err == nil {
		t.Error("Assign() accepted video preference > 1")
	}
}

func TestRefreshReplacesWholeMapping(t *testing.T) {
	svc, _ := NewUserClusteringService(4)

	old := DefaultProfile()
	old.ClusterID = 2
	if err := svc.Assign(1, old); err != nil {
		t.Fatalf("Assign() error = %v", err)
	}

	svc.Refresh([]UserFeatures{
		{UserID: 6, VideoEngagementRate: 0.9, OverallEngagementRate: 1.4},
		{UserID: 7, VideoEngagementRate: 0.2, OverallEngagementRate: 0.8},
	})

	// 旧分配整体消失
	if got := svc.Profile(1); got.ClusterID != 0 {
		t.Errorf("viewer 1 after refresh: ClusterID = %d, want default 0", got.ClusterID)
	}

	// 哈希分桶：6 % 4 == 2
	if got := svc.Profile(6); got.ClusterID != 2 {
		t.Errorf("viewer 6: ClusterID = %d, want 2", got.ClusterID)
	}
	if got := svc.Profile(6); got.VideoPreference != 0.9 {
		t.Errorf("viewer 6: VideoPreference = %v, want 0.9", got.VideoPreference)
	}

	stats := svc.Stats()
	if stats.TotalUsers != 2 {
		t.Errorf("TotalUsers = %d, want 2", stats.TotalUsers)
	}
}

func TestNewServiceRejectsZeroClusters(t *testing.T) {
	if _, err := NewUserClusteringService(0); err == nil {
		t.Error("NewUserClusteringService(0) did not fail")
	}
}
