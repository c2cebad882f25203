package docstore

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/flexprice/staffdesk/internal/config"
	"github.com/flexprice/staffdesk/internal/domain/employee"
	ddb "github.com/flexprice/staffdesk/internal/dynamodb"
	ierr "github.com/flexprice/staffdesk/internal/errors"
	"github.com/flexprice/staffdesk/internal/logger"
	"github.com/flexprice/staffdesk/internal/types"
)

const (
	counterSuffix   = "#counter"
	counterSortKey  = "counter"
	tableWaitPeriod = 2 * time.Minute
)

// Store is the DynamoDB document store backend. All records of a collection
// share one partition; ids come from an atomic counter item.
type Store struct {
	api        ddb.API
	table      string
	collection string
	logger     *logger.Logger
	now        func() time.Time
}

func New(api ddb.API, cfg config.DocStoreConfig, log *logger.Logger) *Store {
	return &Store{
		api:        api,
		table:      cfg.Table,
		collection: cfg.Collection,
		logger:     log,
		now:        time.Now,
	}
}

func (s *Store) key(id int64) map[string]ddbtypes.AttributeValue {
	return map[string]ddbtypes.AttributeValue{
		"pk": &ddbtypes.AttributeValueMemberS{Value: s.collection},
		"sk": &ddbtypes.AttributeValueMemberS{Value: sortKey(id)},
	}
}

// nextID atomically increments the collection counter
func (s *Store) nextID(ctx context.Context) (int64, error) {
	out, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]ddbtypes.AttributeValue{
			"pk": &ddbtypes.AttributeValueMemberS{Value: s.collection + counterSuffix},
			"sk": &ddbtypes.AttributeValueMemberS{Value: counterSortKey},
		},
		UpdateExpression:          aws.String("ADD seq :one"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{":one": &ddbtypes.AttributeValueMemberN{Value: "1"}},
		ReturnValues:              ddbtypes.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, s.storeError(ctx, err, "allocate id")
	}

	var seq struct {
		Seq int64 `dynamodbav:"seq"`
	}
	if err := attributevalue.UnmarshalMap(out.Attributes, &seq); err != nil || seq.Seq == 0 {
		return 0, ierr.NewError("counter returned no sequence").
			WithHint("Document store did not allocate an id").
			Mark(ierr.ErrTransport)
	}
	return seq.Seq, nil
}

func (s *Store) query(ctx context.Context, filterExpr string, names map[string]string, values map[string]ddbtypes.AttributeValue) ([]*employee.Employee, error) {
	if values == nil {
		values = map[string]ddbtypes.AttributeValue{}
	}
	values[":pk"] = &ddbtypes.AttributeValueMemberS{Value: s.collection}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		KeyConditionExpression:    aws.String("pk = :pk"),
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(true),
	}
	if filterExpr != "" {
		input.FilterExpression = aws.String(filterExpr)
		input.ExpressionAttributeNames = names
	}

	var items []*item
	paginator := dynamodb.NewQueryPaginator(s.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, s.storeError(ctx, err, "query")
		}
		var batch []*item
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Document store returned unreadable records").
				Mark(ierr.ErrTransport)
		}
		items = append(items, batch...)
	}

	return lo.Map(items, func(it *item, _ int) *employee.Employee {
		return it.toEmployee()
	}), nil
}

func (s *Store) List(ctx context.Context) ([]*employee.Employee, error) {
	return s.query(ctx, "", nil, nil)
}

func (s *Store) Get(ctx context.Context, id string) (*employee.Employee, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, employee.NewNotFoundError(id)
	}

	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(n),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, s.storeError(ctx, err, "get")
	}
	if len(out.Item) == 0 {
		return nil, employee.NewNotFoundError(id)
	}

	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Document store returned an unreadable record").
			Mark(ierr.ErrTransport)
	}
	return it.toEmployee(), nil
}

func (s *Store) Create(ctx context.Context, in *employee.CreateInput) (*employee.Employee, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	id, err := s.nextID(ctx)
	if err != nil {
		return nil, err
	}

	e := employee.NewEmployee(strconv.FormatInt(id, 10), in, s.now())
	if err := s.put(ctx, newItem(s.collection, id, e), "attribute_not_exists(sk)"); err != nil {
		if isConditionFailed(err) {
			return nil, ierr.WithError(err).
				WithHintf("Employee %d already exists", id).
				Mark(ierr.ErrAlreadyExists)
		}
		return nil, err
	}

	s.logger.Debugw("created employee in document store", "id", e.ID, "collection", s.collection)
	return e, nil
}

// Update reads the document, merges the patch and writes it back only if
// the document still exists
func (s *Store) Update(ctx context.Context, id string, patch *employee.Patch) (*employee.Employee, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	n, _ := strconv.ParseInt(current.ID, 10, 64)
	updated := patch.ApplyTo(current, s.now())
	if err := s.put(ctx, newItem(s.collection, n, updated), "attribute_exists(sk)"); err != nil {
		if isConditionFailed(err) {
			return nil, employee.NewNotFoundError(id)
		}
		return nil, err
	}
	return updated, nil
}

func (s *Store) put(ctx context.Context, it *item, condition string) error {
	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode employee").
			Mark(ierr.ErrInternal)
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                av,
		ConditionExpression: aws.String(condition),
	})
	if err != nil {
		if isConditionFailed(err) {
			return err
		}
		return s.storeError(ctx, err, "put")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) (*employee.Employee, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, employee.NewNotFoundError(id)
	}

	out, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(s.table),
		Key:          s.key(n),
		ReturnValues: ddbtypes.ReturnValueAllOld,
	})
	if err != nil {
		return nil, s.storeError(ctx, err, "delete")
	}
	if len(out.Attributes) == 0 {
		return nil, employee.NewNotFoundError(id)
	}

	var it item
	if err := attributevalue.UnmarshalMap(out.Attributes, &it); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Document store returned an unreadable record").
			Mark(ierr.ErrTransport)
	}
	return it.toEmployee(), nil
}

// Search runs exact and prefix matches as filtered queries on the shadow
// attributes. contains and ends_with have no operator on a lower-cased
// attribute that scales, so the collection is read and filtered here.
func (s *Store) Search(ctx context.Context, filter *types.SearchFilter) ([]*employee.Employee, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	value := lc(filter.Value)
	names := map[string]string{"#f": shadowAttr(filter.Field)}
	values := map[string]ddbtypes.AttributeValue{":v": &ddbtypes.AttributeValueMemberS{Value: value}}

	if value != "" {
		switch filter.Mode {
		case types.MatchExact:
			return s.query(ctx, "#f = :v", names, values)
		case types.MatchStartsWith:
			return s.query(ctx, "begins_with(#f, :v)", names, values)
		}
	}

	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return employee.FilterRecords(records, filter), nil
}

func (s *Store) Capabilities() employee.Capabilities {
	return employee.Capabilities{
		Backend:      types.BackendDocStore,
		IDScheme:     types.IDSchemeNumeric,
		NativeSearch: []types.MatchMode{types.MatchExact, types.MatchStartsWith},
	}
}

// EnsureStorage creates the table when it does not exist and waits for it
// to become active
func (s *Store) EnsureStorage(ctx context.Context) error {
	_, err := s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err == nil {
		s.logger.Infow("document store ready", "table", s.table, "created", false)
		return nil
	}
	if !isTableMissing(err) {
		return s.storeError(ctx, err, "describe table")
	}

	_, err = s.api.CreateTable(ctx, CreateTableInput(s.table))
	if err != nil {
		return s.storeError(ctx, err, "create table")
	}

	waiter := dynamodb.NewTableExistsWaiter(s.api)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}, tableWaitPeriod); err != nil {
		return s.storeError(ctx, err, "wait for table")
	}

	s.logger.Infow("document store ready", "table", s.table, "created", true)
	return nil
}

// CreateTableInput describes the table layout: collection partition key,
// zero-padded id sort key, on-demand billing
func CreateTableInput(table string) *dynamodb.CreateTableInput {
	return &dynamodb.CreateTableInput{
		TableName: aws.String(table),
		AttributeDefinitions: []ddbtypes.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: ddbtypes.ScalarAttributeTypeS},
			{AttributeName: aws.String("sk"), AttributeType: ddbtypes.ScalarAttributeTypeS},
		},
		KeySchema: []ddbtypes.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: ddbtypes.KeyTypeHash},
			{AttributeName: aws.String("sk"), KeyType: ddbtypes.KeyTypeRange},
		},
		BillingMode: ddbtypes.BillingModePayPerRequest,
	}
}

func (s *Store) storeError(ctx context.Context, err error, op string) error {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return ierr.WithError(err).
			WithHint("Request was cancelled").
			Mark(ierr.ErrCancelled)
	}
	if isTableMissing(err) {
		return ierr.WithError(err).
			WithHintf("Document store table %s does not exist, run setup first", s.table).
			Mark(ierr.ErrTransport)
	}
	return ierr.WithError(err).
		WithHint("Document store request failed").
		WithReportableDetails(map[string]any{"operation": op, "table": s.table}).
		Mark(ierr.ErrTransport)
}

func isConditionFailed(err error) bool {
	var ccf *ddbtypes.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func isTableMissing(err error) bool {
	var rnf *ddbtypes.ResourceNotFoundException
	return errors.As(err, &rnf)
}
