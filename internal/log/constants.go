package log

const (
	KeyAppName            = "app"
	KeyRequestID          = "requestId"
	KeySessionID          = "sessionId"
	KeyProcess            = "process"
	KeyToken              = "token"
	KeyEmail              = "email"
	KeyTag                = "tag"
	KeyTraceID            = "traceId"
	KeySpanID             = "spanId"
	KeyRequest            = "request"
	KeyRequestBody        = "requestBody"
	KeyRequestHeader      = "requestHeader"
	KeyRequestHost        = "host"
	KeyRequestIp          = "requesterIP"
	KeyRequestMethod      = "requestMethod"
	KeyRequestProcessedAt = "requestProcessedAt"
	KeyRequestURI         = "requestURI"
	KeyRequestURL         = "requestURL"
	KeyResponseStatus     = "responseStatus"
	KeyConfig             = "config"
	KeyStorageKey         = "storageKey"
	KeyStorageBackend     = "storageBackend"
	KeyDbURL              = "dbUrl"
	KeyProductID          = "productId"
	KeyCategoryID         = "categoryId"
	KeySize               = "size"
	KeyQuantity           = "quantity"
	KeyAvailableStock     = "availableStock"
	KeyCartLine           = "cartLine"
	KeyCartLines          = "cartLines"
	KeyCartTotalItems     = "cartTotalItems"
	KeyCartTotalPrice     = "cartTotalPrice"
	KeyWishlistEntries    = "wishlistEntries"
	KeyCheckoutState      = "checkoutState"
	KeyIdempotencyKey     = "idempotencyKey"
	KeyTransactionID      = "transactionId"
	KeyOrder              = "order"
	KeyUserID             = "userId"
	KeyIsGuest            = "isGuest"
	KeyEvent              = "event"
)
