// Package middleware 提供了 HTTP 請求處理的中間件。
//
// 這個包包含了跨請求的功能：跨來源資源共用（CORS）、請求編號與請求日誌。
package middleware
