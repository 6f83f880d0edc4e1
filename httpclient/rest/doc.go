// Package rest adds generic JSON decoding on top of httpclient.
//
//	resp, err := rest.Get[packageList](ctx, client, "3/action/package_list")
package rest
