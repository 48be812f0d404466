package sqlinline

const QInsertDonation = `--sql 9b79c57c-3615-48a2-9d85-3426d5b3f7eb
insert into donations(id, pool_id, project_id, donor_id, amount, eligible, donor_country, created_at)
values (gen_random_uuid(), $1::uuid, $2::uuid, $3::uuid, $4::bigint, $5::boolean, nullif($6::text, ''), now())
returning id, created_at;
`

// QApplyDonationAggregate folds one donation into the incremental rollup.
// The contributor CTE inserts the (pool, project, donor) marker only for a
// donor's first eligible donation; its row count drives the counter bump.
const QApplyDonationAggregate = `--sql adcecafb-faf1-4690-9ac3-0717c80d25f5
with contributor as (
    insert into donation_contributors(pool_id, project_id, donor_id)
    select $1::uuid, $2::uuid, $3::uuid
    where $5::boolean
    on conflict (pool_id, project_id, donor_id) do nothing
    returning 1
)
insert into donation_aggregates(pool_id, project_id, raw_total, eligible_total, contributor_count, updated_at)
values (
    $1::uuid,
    $2::uuid,
    $4::bigint,
    case when $5::boolean then $4::bigint else 0 end,
    (select count(*) from contributor),
    now()
)
on conflict (pool_id, project_id) do update set
    raw_total = donation_aggregates.raw_total + excluded.raw_total,
    eligible_total = donation_aggregates.eligible_total + excluded.eligible_total,
    contributor_count = donation_aggregates.contributor_count + excluded.contributor_count,
    updated_at = now();
`

const QListPoolDonations = `--sql 7a08e4f6-cb8a-42c4-bd7f-291d6e913edc
select id, pool_id, project_id, donor_id, amount, eligible, donor_country, created_at
from donations
where pool_id = $1::uuid
order by created_at desc
limit $2::int;
`

const QListAllPoolDonations = `--sql 2b2c9eba-f5e8-4a37-8e30-3474225513f1
select id, pool_id, project_id, donor_id, amount, eligible, donor_country, created_at
from donations
where pool_id = $1::uuid
order by created_at asc;
`

const QPoolAggregates = `--sql dd5deee8-b2c2-4f7f-b298-4ad1112acafb
select pool_id, project_id, raw_total, eligible_total, contributor_count, updated_at
from donation_aggregates
where pool_id = $1::uuid
order by project_id asc;
`
