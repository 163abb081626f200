// Package testutil holds shared fixtures for package tests.
package testutil

import "strings"

// CommerceSource is a complete, valid ontology exercising every declaration
// kind. Tests derive edited variants from it with Edit.
const CommerceSource = `# Commerce ontology used across package tests.
ontology Commerce {
  id "ont-commerce"
  version "1.0.0"

  type Money {
    id "t-money"
    base decimal
    constraint min "0"
  }

  type Channel {
    id "t-channel"
    base string
    constraint enum "web,store"
  }

  struct Address {
    id "st-address"
    field street {
      id "f-address-street"
      type string
      required
    }
    field city {
      id "f-address-city"
      type string
      optional
    }
  }

  object Customer {
    id "obj-customer"
    field customerId {
      id "f-customer-id"
      type string
      required
      key primary
    }
    field email {
      id "f-customer-email"
      type string
      required
      key display
    }
    field address {
      id "f-customer-address"
      type Address
      optional
    }
  }

  object Order {
    id "obj-order"
    path "/orders"
    field orderId {
      id "f-order-id"
      type string
      required
      key primary
    }
    field number {
      id "f-order-number"
      type string
      required
      key display
    }
    field totalAmount {
      id "f-order-total"
      type Money
      required
    }
    field quantity {
      id "f-order-quantity"
      type int
      required
    }
    field channel {
      id "f-order-channel"
      type Channel
      optional
    }
    field customer {
      id "f-order-customer"
      type ref(Customer)
      required
    }
    field tags {
      id "f-order-tags"
      type string[]
      optional
    }
    field placedAt {
      id "f-order-placed-at"
      type datetime
      optional
    }
    state draft {
      id "s-order-draft"
      initial
    }
    state placed {
      id "s-order-placed"
    }
    state cancelled {
      id "s-order-cancelled"
    }
    transition place {
      id "tr-order-place"
      from draft
      to placed
    }
    transition cancel {
      id "tr-order-cancel"
      from draft
      to cancelled
    }
  }

  actionInput PlaceOrderInput {
    id "ai-place-order"
    field orderId {
      id "f-place-order-in-id"
      type string
      required
    }
  }

  actionOutput PlaceOrderOutput {
    id "ao-place-order"
    field status {
      id "f-place-order-out-status"
      type string
      required
    }
  }

  action placeOrder {
    id "act-place-order"
    kind command
    input PlaceOrderInput
    output PlaceOrderOutput
  }

  event orderPlaced {
    id "ev-order-placed"
    kind transition
    object Order
    from draft
    to placed
  }

  event placeOrderDone {
    id "ev-place-order-done"
    kind action_output
    action placeOrder
  }

  event paymentReceived {
    id "ev-payment-received"
    kind signal
    payload Address
  }

  trigger onOrderPlaced {
    id "trg-on-order-placed"
    when event orderPlaced
    invoke placeOrder
  }
}
`

// Edit applies old→new replacements to src in order, panicking when an old
// string is absent so a stale fixture edit fails loudly.
func Edit(src string, pairs ...string) string {
	if len(pairs)%2 != 0 {
		panic("testutil.Edit: odd number of replacement arguments")
	}
	for i := 0; i < len(pairs); i += 2 {
		if !strings.Contains(src, pairs[i]) {
			panic("testutil.Edit: fixture does not contain " + pairs[i])
		}
		src = strings.Replace(src, pairs[i], pairs[i+1], 1)
	}
	return src
}
