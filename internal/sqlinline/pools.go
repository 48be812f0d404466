package sqlinline

const QInsertPool = `--sql c9d98354-34a9-4ce3-9e01-5d9474c6d300
insert into pools(id, name, sponsor_id, total_funds, start_time, end_time, created_at, updated_at)
values (gen_random_uuid(), $1::text, $2::uuid, $3::bigint, $4::timestamptz, $5::timestamptz, now(), now())
returning id, created_at;
`

const QGetPoolForUpdate = `--sql 0005d34f-c374-41ca-9d02-2c5476ac35b7
select id, name, sponsor_id, total_funds, start_time, end_time, ended_early, distributed, distributed_at, created_at, updated_at
from pools
where id = $1::uuid
for update;
`

const QGetPoolForShare = `--sql 86487de8-e9a0-4c45-942b-25cc7567502b
select id, name, sponsor_id, total_funds, start_time, end_time, ended_early, distributed, distributed_at, created_at, updated_at
from pools
where id = $1::uuid
for share;
`

const QFundPool = `--sql 55983483-50ef-4b7e-9880-83edc13a7c77
update pools
set total_funds = total_funds + $2::bigint, updated_at = now()
where id = $1::uuid
returning total_funds;
`

const QEndPoolEarly = `--sql e10e2469-711a-481a-a89e-b10f9c56a094
update pools
set ended_early = true, updated_at = now()
where id = $1::uuid;
`

const QMarkPoolDistributed = `--sql 5e4a67f7-cb0a-4909-a01e-ae6c9e8b1302
update pools
set distributed = true, distributed_at = now(), updated_at = now()
where id = $1::uuid;
`

const QRegisterPoolProject = `--sql 41ba3283-2cfb-4775-93fa-c7895637ee6b
insert into pool_projects(pool_id, project_id, registered_at)
values ($1::uuid, $2::uuid, now())
on conflict (pool_id, project_id) do nothing;
`

const QPoolProjectRegistered = `--sql 58734801-414a-423d-8d15-c28606f57ad4
select exists(
    select 1 from pool_projects
    where pool_id = $1::uuid and project_id = $2::uuid
);
`

const QInsertAllocation = `--sql 3a45d0a4-83da-44a9-a0c9-b83417329e7d
insert into allocations(pool_id, project_id, amount, created_at)
values ($1::uuid, $2::uuid, $3::bigint, now());
`

const QListAllocations = `--sql 706e7fe1-204b-45ab-aeb2-431358d32f21
select pool_id, project_id, amount, created_at
from allocations
where pool_id = $1::uuid
order by project_id asc;
`

const QPoolSummary = `--sql 578e9e3b-53e1-4459-b64f-53fd2640e89a
select
  p.id,
  p.name,
  p.sponsor_id,
  p.total_funds,
  p.start_time,
  p.end_time,
  p.ended_early,
  p.distributed,
  (select count(*) from pool_projects pp where pp.pool_id = p.id) as project_count,
  coalesce((select sum(a.contributor_count) from donation_aggregates a where a.pool_id = p.id), 0) as contributor_count,
  coalesce((select sum(a.raw_total) from donation_aggregates a where a.pool_id = p.id), 0) as raw_total,
  coalesce((select sum(a.eligible_total) from donation_aggregates a where a.pool_id = p.id), 0) as eligible_total,
  coalesce((select sum(al.amount) from allocations al where al.pool_id = p.id), 0) as allocated_total
from pools p
where p.id = $1::uuid;
`

const QPoolCountryBreakdown = `--sql 1530fdaa-3047-4f93-8f4e-8683b80d0808
select coalesce(donor_country, 'unknown') as country, count(*) as donations, sum(amount) as total
from donations
where pool_id = $1::uuid
group by 1
order by total desc, country asc;
`
