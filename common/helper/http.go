package helper

import (
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

// 外部网关调用超时配置常量
const (
	GatewayTimeout = 8 * time.Second // 机器人网关统一超时时间
	FastTimeout    = 3 * time.Second // 快速接口超时时间
)

// 全局优化的HTTP客户端，支持连接复用
var globalClient = &fasthttp.Client{
	ReadTimeout:                   5 * time.Second,
	WriteTimeout:                  5 * time.Second,
	MaxIdleConnDuration:           90 * time.Second, // 连接空闲时间
	MaxConnsPerHost:               50,               // 每个主机最大连接数
	MaxConnWaitTimeout:            3 * time.Second,  // 等待连接超时
	DisableHeaderNamesNormalizing: true,             // 禁用header名称标准化以提升性能
}

func HttpDoTimeout(requestBody []byte, method string, requestURI string, headers map[string]string, timeout time.Duration) ([]byte, int, error) {

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()

	defer func() {
		fasthttp.ReleaseResponse(resp)
		fasthttp.ReleaseRequest(req)
	}()

	req.SetRequestURI(requestURI)
	req.Header.SetMethod(method)

	switch method {
	case "POST":
		req.SetBody(requestBody)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	// 使用全局客户端以复用连接
	err := globalClient.DoTimeout(req, resp, timeout)

	var respBytes []byte
	statusCode := 0
	if err == nil {
		respBytes = append(respBytes, resp.Body()...)
		statusCode = resp.StatusCode()
	}

	return respBytes, statusCode, errors.WithStack(err)
}
