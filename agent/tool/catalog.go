package tool

import (
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	recordx "github.com/tanpawarit/Chative-Support-Router/agent/record"
)

const (
	ToolGetCustomer                        = "get_customer"
	ToolListCustomers                      = "list_customers"
	ToolUpdateCustomer                     = "update_customer"
	ToolCreateTicket                       = "create_ticket"
	ToolGetCustomerHistory                 = "get_customer_history"
	ToolListActiveCustomersWithOpenTickets = "list_active_customers_with_open_tickets"
)

// NewCatalog registers the customer and ticket operations backed by store.
func NewCatalog(store contractx.RecordStore) *Registry {
	r := NewRegistry()
	h := handlers{store: store}

	customerID := &schema.ParameterInfo{Type: schema.Integer, Desc: "Customer ID (customers.id)", Required: true}
	data := []contractx.Role{contractx.RoleData}

	r.MustRegister(Tool{
		Info:    NewInfo(ToolGetCustomer, "Get a single customer by ID.", Params{"customer_id": customerID}),
		Roles:   data,
		Handler: h.getCustomer,
	})
	r.MustRegister(Tool{
		Info: NewInfo(ToolListCustomers, "List customers filtered by status with optional limit.", Params{
			"status": {
				Type:     schema.String,
				Desc:     "Customer status: 'active' or 'disabled'",
				Required: true,
				Enum:     []string{string(recordx.CustomerStatusActive), string(recordx.CustomerStatusDisabled)},
			},
			"limit": {Type: schema.Integer, Desc: "Max rows to return, at least 1 (default 20)."},
		}),
		Roles:   data,
		Handler: h.listCustomers,
	})
	r.MustRegister(Tool{
		Info: NewInfo(ToolUpdateCustomer, "Update customer fields by ID. Allowed keys in 'data': name, email, phone, status.", Params{
			"customer_id": customerID,
			"data":        {Type: schema.Object, Desc: "Fields to update. Allowed keys: name, email, phone, status.", Required: true},
		}),
		Roles:   data,
		Handler: h.updateCustomer,
	})
	r.MustRegister(Tool{
		Info: NewInfo(ToolCreateTicket, "Create a new support ticket for a customer.", Params{
			"customer_id": {Type: schema.Integer, Desc: "Customer ID (tickets.customer_id)", Required: true},
			"issue":       {Type: schema.String, Desc: "Ticket issue description.", Required: true},
			"priority": {
				Type:     schema.String,
				Desc:     "Ticket priority.",
				Required: true,
				Enum:     []string{string(recordx.PriorityLow), string(recordx.PriorityMedium), string(recordx.PriorityHigh)},
			},
		}),
		Roles:   []contractx.Role{contractx.RoleAction},
		Handler: h.createTicket,
	})
	r.MustRegister(Tool{
		Info: NewInfo(ToolGetCustomerHistory, "Get all tickets for a customer (ticket history).", Params{
			"customer_id": {Type: schema.Integer, Desc: "Customer ID to fetch ticket history for.", Required: true},
		}),
		Roles:   data,
		Handler: h.customerHistory,
	})
	r.MustRegister(Tool{
		Info:    NewInfo(ToolListActiveCustomersWithOpenTickets, "List active customers who have at least one open ticket.", nil),
		Roles:   data,
		Handler: h.activeWithOpenTickets,
	})

	return r
}

type handlers struct {
	store contractx.RecordStore
}
