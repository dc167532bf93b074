// Package api 處理 HTTP 請求路由和處理。
//
// 這個包註冊所有路由並組裝中間件，實際的請求處理在 handlers 子包中。
// 它負責將 HTTP 請求轉換為適當的服務調用，並將結果轉換回 HTTP 響應。
package api
