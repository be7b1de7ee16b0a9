package urlparser_test

import (
	"testing"

	"cartsync/pkg/lib/urlparser"

	"github.com/stretchr/testify/assert"
)

func TestParseCartPath(t *testing.T) {
	tests := []struct {
		path    string
		want    urlparser.PathParams
		wantErr bool
	}{
		{path: "/cart", want: urlparser.PathParams{Target: urlparser.TargetCart}},
		{path: "/cart/", want: urlparser.PathParams{Target: urlparser.TargetCart}},
		{path: "/cart/items", want: urlparser.PathParams{Target: urlparser.TargetItems}},
		{path: "/cart/checkout", want: urlparser.PathParams{Target: urlparser.TargetCheckout}},
		{path: "/cart/orders", wantErr: true},
		{path: "/cart/items/42", want: urlparser.PathParams{Target: urlparser.TargetItem, CartItemId: 42}},
		{path: "/cart/items/abc", wantErr: true},
		{path: "/cart/items/0", wantErr: true},
		{path: "/cart/foods/1", wantErr: true},
		{path: "/cart/items/1/extra", wantErr: true},
		{path: "/carts/1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := urlparser.ParseCartPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
