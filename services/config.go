package services

// StreamConfig 系统流配置
//
// 组合权限（admin / mine / authority）按权限组展开到这些流上，
// 授权节点的批准与申请记录也发布在这里配置的流中。
type StreamConfig struct {
	// AdminStreams "admin" 组合权限展开到的流（每个流授予 admin 与 write）
	AdminStreams []string `yaml:"admin"`

	// MineStreams "mine"/"authority" 组合权限展开到的流（授予 write；admin 组合额外授予 admin）
	MineStreams []string `yaml:"mine"`

	// ServicesStream 服务流；授予 "<services>.write" 时额外授予全局 issue
	ServicesStream string `yaml:"services"`

	// AuthNodesStream 授权节点记录流
	AuthNodesStream string `yaml:"authnodes"`

	// AuthRequestsStream 授权节点申请流
	AuthRequestsStream string `yaml:"authrequests"`

	// AuthorityID 授权委托记录的 key 前缀
	AuthorityID string `yaml:"authority_id"`
}

// DefaultStreamConfig 返回默认系统流配置
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		AdminStreams:       []string{"authnodes", "authrequests", "services"},
		MineStreams:        []string{"minerinfo"},
		ServicesStream:     "services",
		AuthNodesStream:    "authnodes",
		AuthRequestsStream: "authrequests",
		AuthorityID:        "authority",
	}
}
