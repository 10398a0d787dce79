// Package datasource binds pooled connection sources into an inject container.
//
// A Module is the binding registrar of one named data source. Installed in a container, it opens a private scope
// where the six configuration slots of the data source are declared:
//
//	datasource.unique      -> the data source name
//	datasource.jndi_name   -> datasource.<name>.jndi_name
//	datasource.driver      -> datasource.<name>.driver
//	datasource.properties  -> datasource.<name>.properties
//	datasource.pool_max    -> datasource.<name>.pool_max
//	datasource.pool_min    -> datasource.<name>.pool_min
//
// The right hand side keys are looked up in the surrounding scope, typically as constants loaded by the config
// package. The connection source itself is built once, when the container is initialized, by the Factory of the
// module, and exposed under the identity of the module:
//
//	identity, _ := datasource.Named("orders-db")
//	module, _ := datasource.NewModule(identity, pgxsource.Factory{})
//
//	conf, _ := config.Load(config.WithFile("app.yaml"), config.WithEnvPrefix("APP"))
//	container := inject.New()
//	_ = container.Install(conf.Module(), module)
//	_ = container.Init(ctx)
//
//	orders, _ := inject.Resolve[datasource.ConnectionSource](ctx, container, identity.Qualifier())
//
// Two modules sharing the same name share the same configuration, whatever their qualifier.
package datasource
