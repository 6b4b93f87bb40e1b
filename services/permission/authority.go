package permission

import (
	"context"

	"github.com/ambertime/amberchain/types"
	"github.com/ambertime/amberchain/utils"
)

// delegateAuthority 授权节点委托
//
// 不改变任何权限位，只在授权节点流上记录一条 {"permission": "grant"|"revoke"}，
// key 为 "<authority-id>_<被授权地址>"。显式区间 [0, 0) 表示撤销。
func (s *permissionService) delegateAuthority(ctx context.Context, req *Request) (string, error) {
	grantor, err := s.resolveGrantor(ctx, req.From)
	if err != nil {
		return "", err
	}

	var tokens []string
	for _, t := range req.Targets {
		tokens = append(tokens, utils.SplitAddressList(t)...)
	}
	if len(tokens) != 1 || tokens[0] == Wildcard {
		return "", types.NewError(types.KindInvalidParameter, "Single to-address should be specified")
	}
	grantee, err := utils.ParseAddress(tokens[0])
	if err != nil {
		return "", types.Errorf(types.KindInvalidAddress, "Invalid address: %s", tokens[0])
	}

	window, err := ResolveWindow(req.Window)
	if err != nil {
		return "", err
	}
	action := "grant"
	if window.From == 0 && window.To == 0 {
		action = "revoke"
	}

	payload, err := utils.BuildAndEncodePayload(utils.PayloadField{Key: "permission", Value: action})
	if err != nil {
		return "", types.WrapError(types.KindInternalError, "Cannot encode authority payload", err)
	}

	s.logger.Info("Publishing authority delegation",
		"action", action, "grantor", grantor.String(), "grantee", grantee.String())

	return s.publish(ctx, grantor, s.streams.AuthNodesStream, s.streams.AuthorityID+"_"+grantee.String(), payload)
}

// resolveGrantor 委托人：显式单地址，或钱包中第一个可签名且持有全局 admin 的地址
func (s *permissionService) resolveGrantor(ctx context.Context, from string) (utils.Address, error) {
	if from != Wildcard {
		return ParseSingleAddress(from, "Single from-address should be specified")
	}

	for _, addr := range s.wallet.KnownAddresses(ctx) {
		if addr.IsScriptHash() || !s.wallet.IsSpendable(addr) {
			continue
		}
		ok, err := s.HasPermission(ctx, addr.String(), "admin")
		if err != nil {
			return utils.Address{}, err
		}
		if ok {
			return addr, nil
		}
	}
	return utils.Address{}, types.NewError(types.KindInvalidParameter, "no key with admin permission found.")
}

// HasPermission 地址是否持有权限（非 verbose 列表恰好返回一行）
func (s *permissionService) HasPermission(ctx context.Context, address string, name string) (bool, error) {
	rows, err := s.ListPermissions(ctx, ListRequest{
		Permission: name,
		Addresses:  []string{address},
	})
	if err != nil {
		return false, err
	}
	return len(rows) == 1, nil
}

// ApproveAuthority 批准授权节点
//
// **流程**：
// 1. 批准人必须持有全局 admin
// 2. 对被批准地址授予 "authority" 组合权限（含授权委托）
// 3. 在授权节点流上以被批准地址为 key 发布证书信息
func (s *permissionService) ApproveAuthority(ctx context.Context, req ApproveAuthorityRequest) (string, error) {
	ok, err := s.HasPermission(ctx, req.From, "admin")
	if err != nil {
		return "", err
	}
	if !ok {
		return "", types.NewError(types.KindInsufficientPermissions, "Unauthorized address")
	}

	if _, err := s.Grant(ctx, Request{
		From:       req.From,
		Targets:    []string{req.To},
		Permission: "authority",
	}); err != nil {
		return "", err
	}

	from, err := s.spendableAddress(req.From)
	if err != nil {
		return "", err
	}
	payload, err := utils.BuildAndEncodePayload(
		utils.PayloadField{Key: "public-key", Value: req.PublicKey},
		utils.PayloadField{Key: "digital-certificate", Value: req.Certificate},
		utils.PayloadField{Key: "certificate-details", Value: req.CertificateDetails},
	)
	if err != nil {
		return "", types.WrapError(types.KindInternalError, "Cannot encode certificate payload", err)
	}
	return s.publish(ctx, from, s.streams.AuthNodesStream, req.To, payload)
}

// RequestAuthority 申请成为授权节点：在申请流上以申请地址为 key 发布公钥与 CSR
func (s *permissionService) RequestAuthority(ctx context.Context, req AuthorityRequest) (string, error) {
	from, err := s.spendableAddress(req.From)
	if err != nil {
		return "", err
	}
	payload, err := utils.BuildAndEncodePayload(
		utils.PayloadField{Key: "public-key", Value: req.PublicKey},
		utils.PayloadField{Key: "csr-token", Value: req.CSRToken},
	)
	if err != nil {
		return "", types.WrapError(types.KindInternalError, "Cannot encode authority request", err)
	}
	return s.publish(ctx, from, s.streams.AuthRequestsStream, from.String(), payload)
}

// spendableAddress 显式单地址，且钱包持有其私钥
func (s *permissionService) spendableAddress(from string) (utils.Address, error) {
	addr, err := ParseSingleAddress(from, "Single from-address should be specified")
	if err != nil {
		return utils.Address{}, err
	}
	if !s.wallet.IsSpendable(addr) {
		return utils.Address{}, types.NewError(types.KindWalletAddressNotFound,
			"Private key for from-address is not found in this wallet")
	}
	return addr, nil
}

// publish 在系统流上发布数据（持有发送锁）
func (s *permissionService) publish(ctx context.Context, from utils.Address, streamID, key, payload string) (string, error) {
	stream, err := s.resolver.ResolveEntity(ctx, streamID)
	if err != nil {
		return "", err
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	txid, err := s.submitter.Publish(ctx, from, stream, key, payload)
	if err != nil {
		return "", submissionError(err)
	}
	return txid, nil
}
