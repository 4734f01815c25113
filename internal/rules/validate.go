package rules

import (
	"regexp"

	"github.com/Hara602/micStreamer/internal/model"
)

var (
	friendlyNameRe = regexp.MustCompile(`^[a-z0-9-]+$`)
	hexIDRe        = regexp.MustCompile(`^[0-9a-f]{4}$`)
)

// ValidateInputs 校验三元组格式，任一失败整条规则都不会写入
func ValidateInputs(vendorID, productID, friendlyName string) error {
	if !hexIDRe.MatchString(vendorID) {
		return &model.ValidationError{Field: "vendor id", Value: vendorID, Reason: "must be 4 lowercase hex digits"}
	}
	if !hexIDRe.MatchString(productID) {
		return &model.ValidationError{Field: "product id", Value: productID, Reason: "must be 4 lowercase hex digits"}
	}
	if !friendlyNameRe.MatchString(friendlyName) {
		return &model.ValidationError{Field: "friendly name", Value: friendlyName, Reason: "must match ^[a-z0-9-]+$"}
	}
	return nil
}
