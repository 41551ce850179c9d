package constants

const (
	AppStorefront    = "storefront"
	AppShopServer    = "shop-server"
	AppStorefrontCli = "storefront-cli"
)
