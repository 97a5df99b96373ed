package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// UnaryMethod 產生一個 unary 方法的 MethodDesc
// 取代 protoc-gen-go-grpc 產生的 _Xxx_Handler，訊息由 JSON codec 編解碼
//
// 參數:
//
//	service: string - 完整服務名稱 (e.g., "custody.v1.Custody")
//	name: string - 方法名稱
//	call: func(S, context.Context, *Req) (*Resp, error) - 實際呼叫 server 實作的函式
func UnaryMethod[S any, Req any, Resp any](service, name string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := FullMethod(service, name)
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// FullMethod 組出 "/service/method"
func FullMethod(service, name string) string {
	return "/" + service + "/" + name
}
