package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Alturino/storefront/admin"
	"github.com/Alturino/storefront/catalog"
	inHttp "github.com/Alturino/storefront/internal/http"
)

func openUploads(paths []string) ([]inHttp.File, func(), error) {
	files := []inHttp.File{}
	opened := []*os.File{}
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("failed opening file=%s with error=%w", path, err)
		}
		opened = append(opened, f)
		files = append(files, inHttp.File{Name: filepath.Base(path), Reader: f})
	}
	return files, closeAll, nil
}

func newAdminCommand(a *app) *cobra.Command {
	adminCmd := &cobra.Command{Use: "admin", Short: "Manage the catalog"}

	token := &cobra.Command{
		Use:   "token <token>",
		Short: "Store the admin token, an empty token signs out",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.shopper(cmd.Context())
			if err != nil {
				return err
			}
			value := ""
			if len(args) == 1 {
				value = args[0]
			}
			return sess.Admin.SetToken(cmd.Context(), value)
		},
	}

	categoryCmd := &cobra.Command{Use: "category", Short: "Manage categories"}
	categoryForm := admin.CategoryForm{}
	var categoryImage string
	createCategory := &cobra.Command{
		Use:   "create",
		Short: "Create a category",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.shopper(cmd.Context())
			if err != nil {
				return err
			}
			image := inHttp.File{}
			if categoryImage != "" {
				files, closeFiles, err := openUploads([]string{categoryImage})
				if err != nil {
					return err
				}
				defer closeFiles()
				image = files[0]
			}
			category, err := sess.Admin.CreateCategory(cmd.Context(), categoryForm, image)
			if err != nil {
				return err
			}
			return a.print(category)
		},
	}
	createCategory.Flags().StringVar(&categoryForm.Name, "name", "", "category name")
	createCategory.Flags().StringVar(&categoryImage, "image", "", "path of the category image")

	deleteCategory := &cobra.Command{
		Use:   "delete <categoryId>",
		Short: "Delete a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.shopper(cmd.Context())
			if err != nil {
				return err
			}
			return sess.Admin.DeleteCategory(cmd.Context(), args[0])
		},
	}
	categoryCmd.AddCommand(createCategory, deleteCategory)

	productCmd := &cobra.Command{Use: "product", Short: "Manage products"}
	productForm := admin.ProductForm{}
	var price, discountPrice, sizes string
	var images []string
	createProduct := &cobra.Command{
		Use:   "create",
		Short: "Create a product",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if productForm.Price, err = decimal.NewFromString(price); err != nil {
				return fmt.Errorf("failed parsing price=%s with error=%w", price, err)
			}
			if discountPrice != "" {
				discount, err := decimal.NewFromString(discountPrice)
				if err != nil {
					return fmt.Errorf("failed parsing discount price=%s with error=%w", discountPrice, err)
				}
				productForm.DiscountedPrice = decimal.NewNullDecimal(discount)
			}
			if sizes != "" {
				productForm.Sizes = []catalog.SizeVariant{}
				if err := json.Unmarshal([]byte(sizes), &productForm.Sizes); err != nil {
					return fmt.Errorf("failed parsing sizes with error=%w", err)
				}
			}

			sess, err := a.shopper(cmd.Context())
			if err != nil {
				return err
			}
			files, closeFiles, err := openUploads(images)
			if err != nil {
				return err
			}
			defer closeFiles()
			product, err := sess.Admin.CreateProduct(cmd.Context(), productForm, files)
			if err != nil {
				return err
			}
			return a.print(product)
		},
	}
	flags := createProduct.Flags()
	flags.StringVar(&productForm.Title, "title", "", "product title")
	flags.StringVar(&productForm.Description, "description", "", "product description")
	flags.StringVar(&price, "price", "", "unit price")
	flags.StringVar(&discountPrice, "discount-price", "", "discounted unit price")
	flags.IntVar(&productForm.Stock, "stock", 0, "general stock")
	flags.StringVar(&productForm.Category, "category", "", "category id")
	flags.StringVar(&sizes, "sizes", "", `size table as JSON, e.g. [{"size":"M","stock":3}]`)
	flags.StringSliceVar(&images, "images", nil, "paths of the product images")

	deleteProduct := &cobra.Command{
		Use:   "delete <productId>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.shopper(cmd.Context())
			if err != nil {
				return err
			}
			return sess.Admin.DeleteProduct(cmd.Context(), args[0])
		},
	}
	productCmd.AddCommand(createProduct, deleteProduct)

	adminCmd.AddCommand(token, categoryCmd, productCmd)
	return adminCmd
}
