package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"time"
)

// timeNowMillis 抽出便于测试固定时间戳。
var timeNowMillis = func() int64 { return time.Now().UnixMilli() }

// SignParams 追加 timestamp/recvWindow 后做 HMAC-SHA256 签名，返回编码后的 query 与签名。
func SignParams(params map[string]string, secret string, recvWindowMs int64) (string, string) {
	v := url.Values{}
	for k, val := range params {
		v.Set(k, val)
	}
	v.Set("timestamp", strconv.FormatInt(timeNowMillis(), 10))
	if recvWindowMs > 0 {
		v.Set("recvWindow", strconv.FormatInt(recvWindowMs, 10))
	}
	query := v.Encode()
	return query, sign(secret, query)
}

func sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
